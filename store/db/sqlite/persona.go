package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/animus-chat/animus/store"
)

func (d *DB) UpsertPersona(ctx context.Context, upsert *store.UpsertPersona) (*store.Persona, error) {
	db, err := d.conn(ctx, upsert.SessionID)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin persona transaction")
	}
	defer tx.Rollback()

	updatedTs := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO persona (id, content, updated_ts) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET content = excluded.content, updated_ts = excluded.updated_ts
	`, upsert.Content, updatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert persona")
	}

	// Chunks are derived from the persona text, so a new text replaces
	// the old chunk set wholesale.
	if _, err := tx.ExecContext(ctx, "DELETE FROM persona_chunk"); err != nil {
		return nil, errors.Wrap(err, "failed to clear persona chunks")
	}
	for _, chunk := range upsert.Chunks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO persona_chunk (seq, start_offset, content, embedding) VALUES (?, ?, ?, ?)
		`, chunk.Seq, chunk.Offset, chunk.Content, store.EncodeEmbedding(chunk.Embedding)); err != nil {
			return nil, errors.Wrapf(err, "failed to insert persona chunk %d", chunk.Seq)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit persona")
	}

	return &store.Persona{
		SessionID: upsert.SessionID,
		Content:   upsert.Content,
		UpdatedTs: updatedTs,
	}, nil
}

func (d *DB) GetPersona(ctx context.Context, sessionID string) (*store.Persona, error) {
	db, err := d.conn(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	persona := &store.Persona{SessionID: sessionID}
	err = db.QueryRowContext(ctx, "SELECT content, updated_ts FROM persona WHERE id = 1").
		Scan(&persona.Content, &persona.UpdatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get persona")
	}
	return persona, nil
}

func (d *DB) ListPersonaChunks(ctx context.Context, sessionID string) ([]*store.PersonaChunk, error) {
	db, err := d.conn(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT seq, start_offset, content, embedding
		FROM persona_chunk
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list persona chunks")
	}
	defer rows.Close()

	chunks := []*store.PersonaChunk{}
	for rows.Next() {
		var (
			chunk store.PersonaChunk
			blob  []byte
		)
		if err := rows.Scan(&chunk.Seq, &chunk.Offset, &chunk.Content, &blob); err != nil {
			return nil, errors.Wrap(err, "failed to scan persona chunk")
		}
		embedding, err := store.DecodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		chunk.SessionID = sessionID
		chunk.Embedding = embedding
		chunks = append(chunks, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate persona chunks")
	}
	return chunks, nil
}
