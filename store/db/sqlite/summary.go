package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/animus-chat/animus/store"
)

func (d *DB) CreateSummary(ctx context.Context, create *store.CreateSummary) (*store.Summary, error) {
	if create.EndSeq <= create.StartSeq {
		return nil, errors.Errorf("empty summary range [%d, %d)", create.StartSeq, create.EndSeq)
	}

	db, err := d.conn(ctx, create.SessionID)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin summary transaction")
	}
	defer tx.Rollback()

	// Summary ranges must tile the message log: each one starts exactly
	// where the previous ended, so no message is covered twice.
	var expectedStart int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(end_seq), 0) FROM summary").Scan(&expectedStart); err != nil {
		return nil, errors.Wrap(err, "failed to read latest summary range")
	}
	if create.StartSeq != expectedStart {
		return nil, errors.Wrapf(store.ErrNonContiguousSummary,
			"range starts at %d, previous summary ended at %d", create.StartSeq, expectedStart)
	}

	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM message").Scan(&count); err != nil {
		return nil, errors.Wrap(err, "failed to count messages")
	}
	if create.EndSeq > count {
		return nil, errors.Errorf("summary range end %d exceeds message count %d", create.EndSeq, count)
	}

	createdTs := time.Now().Unix()
	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO summary (content, start_seq, end_seq, created_ts)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, create.Content, create.StartSeq, create.EndSeq, createdTs).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "failed to insert summary")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit summary")
	}

	return &store.Summary{
		ID:        id,
		SessionID: create.SessionID,
		Content:   create.Content,
		StartSeq:  create.StartSeq,
		EndSeq:    create.EndSeq,
		CreatedTs: createdTs,
	}, nil
}

func (d *DB) GetLatestSummary(ctx context.Context, sessionID string) (*store.Summary, error) {
	db, err := d.conn(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &store.Summary{SessionID: sessionID}
	err = db.QueryRowContext(ctx, `
		SELECT id, content, start_seq, end_seq, created_ts
		FROM summary
		ORDER BY end_seq DESC
		LIMIT 1
	`).Scan(&summary.ID, &summary.Content, &summary.StartSeq, &summary.EndSeq, &summary.CreatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get latest summary")
	}
	return summary, nil
}

func (d *DB) ListSummaries(ctx context.Context, sessionID string) ([]*store.Summary, error) {
	db, err := d.conn(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, content, start_seq, end_seq, created_ts
		FROM summary
		ORDER BY start_seq ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list summaries")
	}
	defer rows.Close()

	summaries := []*store.Summary{}
	for rows.Next() {
		summary := &store.Summary{SessionID: sessionID}
		if err := rows.Scan(&summary.ID, &summary.Content, &summary.StartSeq, &summary.EndSeq, &summary.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan summary")
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate summaries")
	}
	return summaries, nil
}
