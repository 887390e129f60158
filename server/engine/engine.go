// Package engine wires the memory tiers into the operations the routing
// layer consumes: storing a turn, building a prompt, persona management,
// and a health snapshot. All dependencies are passed in explicitly; the
// engine holds no global state.
package engine

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/animus-chat/animus/internal/profile"
	"github.com/animus-chat/animus/plugin/ai"
	"github.com/animus-chat/animus/server/assembler"
	"github.com/animus-chat/animus/server/compactor"
	"github.com/animus-chat/animus/server/emotion"
	"github.com/animus-chat/animus/server/memory"
	"github.com/animus-chat/animus/server/retrieval"
	"github.com/animus-chat/animus/server/tokenbudget"
	"github.com/animus-chat/animus/store"
)

// chunkEmbedConcurrency bounds the persona chunk embedding fan-out.
const chunkEmbedConcurrency = 4

// Engine is the tiered memory and context assembly engine.
type Engine struct {
	profile   *profile.Profile
	store     *store.Store
	working   *memory.WorkingSet
	scorer    *emotion.Scorer
	index     *retrieval.Index
	assembler *assembler.Assembler
	scheduler *compactor.Scheduler
	embedder  ai.EmbeddingService
	logger    *slog.Logger
}

// New assembles an engine from its collaborators.
func New(p *profile.Profile, st *store.Store, embedder ai.EmbeddingService, summarizer ai.SummarizerService, counter ai.TokenCounter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	allocator := tokenbudget.NewAllocator(counter)
	return &Engine{
		profile: p,
		store:   st,
		working: memory.New(p.WorkingSetSize),
		scorer:  emotion.NewScorer(nil),
		index:   retrieval.New(st, p.BoostFactor, p.SearchCeiling),
		assembler: assembler.New(allocator, p.ContextTokens, tokenbudget.Percentages{
			System:   p.SystemPercent,
			RAG:      p.RAGPercent,
			History:  p.HistoryPercent,
			Response: p.ResponsePercent,
		}, logger),
		scheduler: compactor.New(st, summarizer, p.SummarizeThreshold, logger),
		embedder:  embedder,
		logger:    logger,
	}
}

// Health is the engine's liveness snapshot.
type Health struct {
	ActiveSessions int  `json:"active_sessions"`
	StoreReachable bool `json:"store_reachable"`
}

// StoreMessage scores, embeds, and durably appends one turn, then feeds
// the working set and evaluates the compaction trigger. Only a storage
// failure is returned as an error; a failed embedding degrades to an
// unembedded message.
func (e *Engine) StoreMessage(ctx context.Context, sessionID string, role store.Role, content string) (*store.Message, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if !role.Valid() {
		return nil, errors.Errorf("invalid role %q", role)
	}

	scored := e.scorer.Score(content)

	var embedding []float32
	if e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, content)
		if err != nil {
			e.logger.Warn("embedding failed, storing message unembedded",
				"session_id", sessionID, "error", err)
		} else {
			embedding = vec
		}
	}

	// Seed the working set from storage before the append so the lazy
	// rebuild cannot double-count the new message.
	if err := e.ensureWorkingSet(ctx, sessionID); err != nil {
		e.logger.Warn("working set rebuild failed", "session_id", sessionID, "error", err)
	}

	message, err := e.store.CreateMessage(ctx, &store.CreateMessage{
		SessionID:  sessionID,
		Role:       role,
		Content:    content,
		Embedding:  embedding,
		Emotion:    scored.Emotion,
		Importance: scored.Importance,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to store message")
	}

	e.working.Push(sessionID, message)
	e.scheduler.Evaluate(ctx, sessionID)

	return message, nil
}

// BuildContext assembles the ordered prompt for the given user message.
// Retrieval and persona reads degrade to absence; only unexpected
// storage failures during history rebuild are returned.
func (e *Engine) BuildContext(ctx context.Context, sessionID, userMessage string) ([]assembler.Entry, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	scored := e.scorer.Score(userMessage)

	var personaText string
	if persona, err := e.store.GetPersona(ctx, sessionID); err != nil {
		e.logger.Warn("persona read failed, building context without persona",
			"session_id", sessionID, "error", err)
	} else if persona != nil {
		personaText = persona.Content
	}

	if err := e.ensureWorkingSet(ctx, sessionID); err != nil {
		return nil, errors.Wrap(err, "failed to rebuild working set")
	}
	history := e.working.Snapshot(sessionID)

	retrieved := e.retrieve(ctx, sessionID, userMessage, scored.Emotion)

	var summary *store.Summary
	if latest, err := e.store.GetLatestSummary(ctx, sessionID); err != nil {
		e.logger.Warn("summary read failed", "session_id", sessionID, "error", err)
	} else {
		summary = latest
	}

	return e.assembler.Build(&assembler.Input{
		Persona:     personaText,
		Guidance:    e.scorer.GuidancePrompt(scored),
		Retrieved:   retrieved,
		History:     history,
		Summary:     summary,
		UserMessage: userMessage,
	}), nil
}

// retrieve runs the semantic search leg. Every failure mode collapses to
// an empty block: context assembly proceeds with persona and history.
func (e *Engine) retrieve(ctx context.Context, sessionID, query, queryEmotion string) string {
	if e.embedder == nil {
		return ""
	}
	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, skipping retrieval",
			"session_id", sessionID, "error", err)
		return ""
	}
	results, err := e.index.Search(ctx, sessionID, queryVec, queryEmotion, e.profile.TopK)
	if err != nil {
		e.logger.Warn("retrieval failed, proceeding without retrieved context",
			"session_id", sessionID, "error", err)
		return ""
	}
	return retrieval.FormatResults(results)
}

// GetPersona returns the persona text; ok is false when none is set.
func (e *Engine) GetPersona(ctx context.Context, sessionID string) (string, bool, error) {
	persona, err := e.store.GetPersona(ctx, sessionID)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get persona")
	}
	if persona == nil {
		return "", false, nil
	}
	return persona.Content, true, nil
}

// SetPersona stores the persona and re-derives its chunk index. Chunk
// embedding failures degrade to unembedded chunks (excluded from
// retrieval, still part of the persona text).
func (e *Engine) SetPersona(ctx context.Context, sessionID, text string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}

	chunks := store.ChunkText(text, e.profile.ChunkSize, e.profile.ChunkOverlap)
	if e.embedder != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(chunkEmbedConcurrency)
		for _, chunk := range chunks {
			chunk := chunk
			g.Go(func() error {
				vec, err := e.embedder.Embed(gctx, chunk.Content)
				if err != nil {
					e.logger.Warn("persona chunk embedding failed",
						"session_id", sessionID, "chunk", chunk.Seq, "error", err)
					return nil
				}
				chunk.Embedding = vec
				return nil
			})
		}
		_ = g.Wait()
	}

	if _, err := e.store.UpsertPersona(ctx, &store.UpsertPersona{
		SessionID: sessionID,
		Content:   text,
		Chunks:    chunks,
	}); err != nil {
		return errors.Wrap(err, "failed to store persona")
	}
	return nil
}

// HealthSnapshot reports active session count and store reachability.
func (e *Engine) HealthSnapshot(ctx context.Context) *Health {
	return &Health{
		ActiveSessions: e.working.ActiveSessions(),
		StoreReachable: e.store.Ping(ctx) == nil,
	}
}

// Scheduler exposes the compaction scheduler for lifecycle management.
func (e *Engine) Scheduler() *compactor.Scheduler {
	return e.scheduler
}

// Close stops background compaction. The store is closed by its owner.
func (e *Engine) Close() {
	e.scheduler.Close()
}

// ensureWorkingSet lazily rebuilds a session's recency buffer from the
// store after process restart.
func (e *Engine) ensureWorkingSet(ctx context.Context, sessionID string) error {
	if e.working.Has(sessionID) {
		return nil
	}
	recent, err := e.store.ListRecentMessages(ctx, sessionID, e.working.Capacity())
	if err != nil {
		return err
	}
	e.working.Seed(sessionID, recent)
	return nil
}
