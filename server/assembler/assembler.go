// Package assembler builds the ordered prompt for one turn. The entry
// order is a contract: persona, retrieved context, summary (only when
// history was dropped), fitted history oldest to newest, then the
// current user message.
package assembler

import (
	"log/slog"

	"github.com/animus-chat/animus/server/tokenbudget"
	"github.com/animus-chat/animus/store"
)

// Entry is one (role, content) element of the outbound prompt.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Input gathers everything one build needs. Any field except UserMessage
// may be empty; the assembler degrades rather than fails.
type Input struct {
	// Persona is the session's character card text.
	Persona string
	// Guidance is the emotional-context block, appended to the persona
	// entry when present.
	Guidance string
	// Retrieved is the formatted retrieval block.
	Retrieved string
	// History is the working-set snapshot, oldest to newest.
	History []*store.Message
	// Summary is the latest stored summary, used only when history
	// entries are dropped.
	Summary *store.Summary
	// UserMessage is the current turn's text.
	UserMessage string
}

// Assembler fits content classes into their token buckets.
type Assembler struct {
	allocator *tokenbudget.Allocator
	totals    int
	pct       tokenbudget.Percentages
	logger    *slog.Logger
}

// New creates an assembler. The percentage configuration is validated by
// the first Build; totals is the full context window token capacity.
func New(allocator *tokenbudget.Allocator, totalTokens int, pct tokenbudget.Percentages, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		allocator: allocator,
		totals:    totalTokens,
		pct:       pct,
		logger:    logger,
	}
}

// Build assembles the prompt. It never fails: budget problems degrade to
// truncation and are logged.
func (a *Assembler) Build(in *Input) []Entry {
	budget, err := a.allocator.Allocate(a.totals, a.pct)
	if err != nil {
		// Misconfiguration is caught at startup by profile validation;
		// fall back to an even split rather than dropping the turn.
		a.logger.Error("budget allocation failed, using even split", "error", err)
		budget, _ = a.allocator.Allocate(a.totals, tokenbudget.Percentages{System: 25, RAG: 25, History: 25, Response: 25})
	}

	entries := []Entry{}

	if persona := a.fitPersona(in.Persona, in.Guidance, budget.System); persona != "" {
		entries = append(entries, Entry{Role: string(store.RoleSystem), Content: persona})
	}

	if in.Retrieved != "" {
		retrieved := a.allocator.Truncate(in.Retrieved, budget.RAG, true)
		if retrieved != "" {
			entries = append(entries, Entry{Role: string(store.RoleSystem), Content: retrieved})
		}
	}

	fitted, dropped := a.fitHistory(in.History, budget.History)
	if dropped > 0 {
		a.logger.Debug("history truncated to budget", "dropped", dropped, "kept", len(fitted))
		if in.Summary != nil {
			entries = append(entries, Entry{
				Role:    string(store.RoleSystem),
				Content: "Summary of earlier conversation:\n" + in.Summary.Content,
			})
		}
		// No summary yet for the dropped range is a recoverable gap:
		// compaction will cover it on a later trigger.
	}
	for _, m := range fitted {
		entries = append(entries, Entry{Role: string(m.Role), Content: m.Content})
	}

	entries = append(entries, Entry{Role: string(store.RoleUser), Content: in.UserMessage})
	return entries
}

// fitPersona joins the persona with the guidance block and fits the
// result to the system bucket. The persona is meant to survive whole;
// when it cannot, it is truncated (keeping the start, where character
// cards put the essentials) and the overflow is logged rather than
// failing the turn or starving the other buckets.
func (a *Assembler) fitPersona(persona, guidance string, maxTokens int) string {
	content := persona
	if guidance != "" {
		if content != "" {
			content += "\n\n"
		}
		content += guidance
	}
	if content == "" {
		return ""
	}

	fitted := a.allocator.Truncate(content, maxTokens, true)
	if tokenbudget.WasTruncated(content, fitted) {
		a.logger.Warn("persona exceeds system budget, truncated",
			"budget_tokens", maxTokens,
			"persona_tokens", a.allocator.CountTokens(content))
	}
	return fitted
}

// fitHistory keeps the newest messages whose cumulative cost fits the
// bucket, dropping the oldest first. Returns the fitted slice oldest to
// newest and how many were dropped.
func (a *Assembler) fitHistory(history []*store.Message, maxTokens int) ([]*store.Message, int) {
	if len(history) == 0 {
		return nil, 0
	}

	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := a.allocator.CountMessage(string(history[i].Role), history[i].Content)
		if used+cost > maxTokens {
			break
		}
		used += cost
		start = i
	}
	return history[start:], start
}
