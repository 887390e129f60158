package store

import (
	"context"

	"github.com/animus-chat/animus/internal/profile"
)

// Store provides durable access to per-session messages, personas, and
// summaries. It owns these records exclusively; the working-set cache and
// the embedding index hold rebuildable projections of them.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateMessage(ctx context.Context, create *CreateMessage) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	return s.driver.ListRecentMessages(ctx, sessionID, limit)
}

func (s *Store) ListMessageRange(ctx context.Context, sessionID string, startSeq, endSeq int64) ([]*Message, error) {
	return s.driver.ListMessageRange(ctx, sessionID, startSeq, endSeq)
}

func (s *Store) ListEmbeddedMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	return s.driver.ListEmbeddedMessages(ctx, sessionID, limit)
}

func (s *Store) CountMessages(ctx context.Context, sessionID string) (int64, error) {
	return s.driver.CountMessages(ctx, sessionID)
}

func (s *Store) UpsertPersona(ctx context.Context, upsert *UpsertPersona) (*Persona, error) {
	return s.driver.UpsertPersona(ctx, upsert)
}

func (s *Store) GetPersona(ctx context.Context, sessionID string) (*Persona, error) {
	return s.driver.GetPersona(ctx, sessionID)
}

func (s *Store) ListPersonaChunks(ctx context.Context, sessionID string) ([]*PersonaChunk, error) {
	return s.driver.ListPersonaChunks(ctx, sessionID)
}

func (s *Store) CreateSummary(ctx context.Context, create *CreateSummary) (*Summary, error) {
	return s.driver.CreateSummary(ctx, create)
}

func (s *Store) GetLatestSummary(ctx context.Context, sessionID string) (*Summary, error) {
	return s.driver.GetLatestSummary(ctx, sessionID)
}

func (s *Store) ListSummaries(ctx context.Context, sessionID string) ([]*Summary, error) {
	return s.driver.ListSummaries(ctx, sessionID)
}

func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	return s.driver.ListSessions(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}
