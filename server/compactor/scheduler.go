// Package compactor watches per-session message growth and condenses
// aged history into summaries in the background. At most one compaction
// runs per session at any time; failures leave the range uncovered so
// the next eligible turn retries.
package compactor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/animus-chat/animus/plugin/ai"
	"github.com/animus-chat/animus/store"
)

// CompactionStore is the slice of the store the scheduler reads and
// writes.
type CompactionStore interface {
	CountMessages(ctx context.Context, sessionID string) (int64, error)
	GetLatestSummary(ctx context.Context, sessionID string) (*store.Summary, error)
	ListMessageRange(ctx context.Context, sessionID string, startSeq, endSeq int64) ([]*store.Message, error)
	CreateSummary(ctx context.Context, create *store.CreateSummary) (*store.Summary, error)
}

// Scheduler triggers and runs compaction tasks.
type Scheduler struct {
	store      CompactionStore
	summarizer ai.SummarizerService
	threshold  int64
	logger     *slog.Logger

	// inflight gates one task per session: the key is present while a
	// task runs, so a second trigger is a no-op rather than a queued
	// duplicate.
	inflight sync.Map
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. threshold is the uncompacted message count
// that triggers a task.
func New(compactionStore CompactionStore, summarizer ai.SummarizerService, threshold int, logger *slog.Logger) *Scheduler {
	if threshold <= 0 {
		threshold = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:      compactionStore,
		summarizer: summarizer,
		threshold:  int64(threshold),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// ShouldSummarize reports whether the session has accumulated enough
// uncompacted messages, and the range [start, end) the next task would
// cover.
func (s *Scheduler) ShouldSummarize(ctx context.Context, sessionID string) (bool, int64, int64, error) {
	count, err := s.store.CountMessages(ctx, sessionID)
	if err != nil {
		return false, 0, 0, err
	}

	var start int64
	if latest, err := s.store.GetLatestSummary(ctx, sessionID); err != nil {
		return false, 0, 0, err
	} else if latest != nil {
		start = latest.EndSeq
	}

	if count-start < s.threshold {
		return false, 0, 0, nil
	}
	// Compact the oldest uncompacted window, not everything: later
	// windows trigger again once this one lands.
	return true, start, start + s.threshold, nil
}

// Evaluate checks the trigger and, when due, launches a compaction task
// in the background. It never blocks on summarization and silently skips
// sessions that already have a task in flight.
func (s *Scheduler) Evaluate(ctx context.Context, sessionID string) {
	due, start, end, err := s.ShouldSummarize(ctx, sessionID)
	if err != nil {
		s.logger.Warn("compaction trigger check failed", "session_id", sessionID, "error", err)
		return
	}
	if !due {
		return
	}

	if _, loaded := s.inflight.LoadOrStore(sessionID, struct{}{}); loaded {
		return
	}

	s.wg.Add(1)
	go s.run(sessionID, start, end)
}

// InFlight reports whether the session has a running compaction task.
func (s *Scheduler) InFlight(sessionID string) bool {
	_, ok := s.inflight.Load(sessionID)
	return ok
}

// Close cancels in-flight tasks and waits for them to exit. Abandoned
// tasks leave their range uncovered, which is safe: the trigger fires
// again after restart.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run(sessionID string, start, end int64) {
	defer s.wg.Done()
	defer s.inflight.Delete(sessionID)

	messages, err := s.store.ListMessageRange(s.ctx, sessionID, start, end)
	if err != nil {
		s.logger.Warn("compaction read failed", "session_id", sessionID, "start", start, "end", end, "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}

	window := make([]ai.Message, len(messages))
	for i, m := range messages {
		role := string(m.Role)
		if m.Emotion != "" && m.Emotion != "neutral" {
			role += " [" + m.Emotion + "]"
		}
		window[i] = ai.Message{Role: role, Content: m.Content}
	}

	summary, err := s.summarizer.Summarize(s.ctx, window)
	if err != nil {
		// The range stays uncovered and the trigger condition stays
		// true, so the next eligible turn retries.
		s.logger.Warn("summarization failed, will retry on next trigger",
			"session_id", sessionID, "start", start, "end", end, "error", err)
		return
	}

	if _, err := s.store.CreateSummary(s.ctx, &store.CreateSummary{
		SessionID: sessionID,
		Content:   summary,
		StartSeq:  start,
		EndSeq:    end,
	}); err != nil {
		s.logger.Warn("failed to persist summary", "session_id", sessionID, "start", start, "end", end, "error", err)
		return
	}

	s.logger.Info("compacted message range", "session_id", sessionID, "start", start, "end", end)
}
