package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/animus-chat/animus/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.CreateMessage) (*store.Message, error) {
	if !create.Role.Valid() {
		return nil, errors.Errorf("invalid message role %q", create.Role)
	}

	db, err := d.conn(ctx, create.SessionID)
	if err != nil {
		return nil, err
	}

	// Sequence ids are dense and zero-based: the next seq equals the
	// current row count. Computed inside the insert so assignment and
	// commit are one atomic statement.
	const stmt = `
		INSERT INTO message (seq, role, content, embedding, emotion, importance, created_ts)
		VALUES ((SELECT COUNT(*) FROM message), ?, ?, ?, ?, ?, ?)
		RETURNING seq
	`
	createdTs := time.Now().Unix()
	var seq int64
	if err := db.QueryRowContext(ctx, stmt,
		string(create.Role),
		create.Content,
		store.EncodeEmbedding(create.Embedding),
		create.Emotion,
		create.Importance,
		createdTs,
	).Scan(&seq); err != nil {
		return nil, errors.Wrap(err, "failed to append message")
	}

	return &store.Message{
		Seq:        seq,
		SessionID:  create.SessionID,
		Role:       create.Role,
		Content:    create.Content,
		Embedding:  create.Embedding,
		Emotion:    create.Emotion,
		Importance: create.Importance,
		CreatedTs:  createdTs,
	}, nil
}

func (d *DB) ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]*store.Message, error) {
	db, err := d.conn(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT seq, role, content, embedding, emotion, importance, created_ts
		FROM message
		ORDER BY seq DESC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent messages")
	}
	defer rows.Close()

	messages, err := scanMessages(rows, sessionID)
	if err != nil {
		return nil, err
	}
	reverseMessages(messages)
	return messages, nil
}

func (d *DB) ListMessageRange(ctx context.Context, sessionID string, startSeq, endSeq int64) ([]*store.Message, error) {
	db, err := d.conn(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT seq, role, content, embedding, emotion, importance, created_ts
		FROM message
		WHERE seq >= ? AND seq < ?
		ORDER BY seq ASC
	`
	rows, err := db.QueryContext(ctx, query, startSeq, endSeq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list message range")
	}
	defer rows.Close()

	return scanMessages(rows, sessionID)
}

func (d *DB) ListEmbeddedMessages(ctx context.Context, sessionID string, limit int) ([]*store.Message, error) {
	db, err := d.conn(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT seq, role, content, embedding, emotion, importance, created_ts
		FROM message
		WHERE embedding IS NOT NULL
		ORDER BY seq DESC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list embedded messages")
	}
	defer rows.Close()

	messages, err := scanMessages(rows, sessionID)
	if err != nil {
		return nil, err
	}
	reverseMessages(messages)
	return messages, nil
}

func (d *DB) CountMessages(ctx context.Context, sessionID string) (int64, error) {
	db, err := d.conn(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM message").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count messages")
	}
	return count, nil
}

func scanMessages(rows *sql.Rows, sessionID string) ([]*store.Message, error) {
	messages := []*store.Message{}
	for rows.Next() {
		var (
			message store.Message
			role    string
			blob    []byte
		)
		if err := rows.Scan(
			&message.Seq,
			&role,
			&message.Content,
			&blob,
			&message.Emotion,
			&message.Importance,
			&message.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		embedding, err := store.DecodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		message.SessionID = sessionID
		message.Role = store.Role(role)
		message.Embedding = embedding
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate messages")
	}
	return messages, nil
}

func reverseMessages(messages []*store.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
