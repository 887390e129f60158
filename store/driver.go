package store

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNonContiguousSummary is returned when a summary range does not start
// where the previous summary for the session ended.
var ErrNonContiguousSummary = errors.New("summary range is not contiguous with the previous summary")

// Driver is an interface for the durable storage substrate. Each session's
// data lives in its own partition; no call crosses session boundaries, so
// drivers need no cross-session locking.
type Driver interface {
	// CreateMessage durably commits the message before returning. The
	// returned message carries the assigned sequence id and timestamp.
	CreateMessage(ctx context.Context, create *CreateMessage) (*Message, error)
	// ListRecentMessages returns up to limit of the newest messages,
	// ordered oldest to newest.
	ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)
	// ListMessageRange returns messages with StartSeq <= seq < EndSeq,
	// ordered by sequence id.
	ListMessageRange(ctx context.Context, sessionID string, startSeq, endSeq int64) ([]*Message, error)
	// ListEmbeddedMessages returns up to limit of the newest messages
	// that carry an embedding, ordered oldest to newest.
	ListEmbeddedMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)
	// CountMessages returns the total number of messages, which equals
	// the next sequence id.
	CountMessages(ctx context.Context, sessionID string) (int64, error)

	UpsertPersona(ctx context.Context, upsert *UpsertPersona) (*Persona, error)
	// GetPersona returns (nil, nil) when the session has no persona.
	GetPersona(ctx context.Context, sessionID string) (*Persona, error)
	ListPersonaChunks(ctx context.Context, sessionID string) ([]*PersonaChunk, error)

	// CreateSummary validates contiguity against the latest summary and
	// fails with ErrNonContiguousSummary on a gap or overlap.
	CreateSummary(ctx context.Context, create *CreateSummary) (*Summary, error)
	// GetLatestSummary returns (nil, nil) when no summary exists.
	GetLatestSummary(ctx context.Context, sessionID string) (*Summary, error)
	ListSummaries(ctx context.Context, sessionID string) ([]*Summary, error)

	// ListSessions enumerates the session keys present on disk.
	ListSessions(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
