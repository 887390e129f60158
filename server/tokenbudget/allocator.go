// Package tokenbudget splits a total token capacity into named buckets
// and fits text into them. Token counting is delegated to the tokenizer
// adapter; when none is configured the chars/4 heuristic applies.
package tokenbudget

import (
	"github.com/pkg/errors"

	"github.com/animus-chat/animus/plugin/ai"
)

const (
	// perMessageOverhead approximates the tokens a chat API spends on
	// message framing.
	perMessageOverhead = 4
	// responsePriming approximates the tokens spent priming the reply.
	responsePriming = 3
	// truncationMarker is appended (or prepended) to truncated text.
	truncationMarker = "..."
)

// Percentages names the four budget buckets. Values must sum to 100.
type Percentages struct {
	System   int
	RAG      int
	History  int
	Response int
}

// Validate checks the percentage configuration.
func (p Percentages) Validate() error {
	if p.System < 0 || p.RAG < 0 || p.History < 0 || p.Response < 0 {
		return errors.New("budget percentages must not be negative")
	}
	if sum := p.System + p.RAG + p.History + p.Response; sum != 100 {
		return errors.Errorf("budget percentages must sum to 100, got %d", sum)
	}
	return nil
}

// Budget is the allocated token count per bucket.
type Budget struct {
	System   int
	RAG      int
	History  int
	Response int
}

// Total returns the sum of all buckets.
func (b Budget) Total() int {
	return b.System + b.RAG + b.History + b.Response
}

// Allocator owns budget arithmetic and truncation for one engine.
type Allocator struct {
	counter ai.TokenCounter
}

// NewAllocator creates an allocator over the given counter; nil selects
// the heuristic counter.
func NewAllocator(counter ai.TokenCounter) *Allocator {
	if counter == nil {
		counter = ai.HeuristicCounter{}
	}
	return &Allocator{counter: counter}
}

// Allocate splits total across the buckets by floor division. The
// rounding remainder is assigned to the history bucket, so the buckets
// always sum to exactly total.
func (a *Allocator) Allocate(total int, pct Percentages) (Budget, error) {
	if total <= 0 {
		return Budget{}, errors.Errorf("total token capacity must be positive, got %d", total)
	}
	if err := pct.Validate(); err != nil {
		return Budget{}, err
	}

	b := Budget{
		System:   total * pct.System / 100,
		RAG:      total * pct.RAG / 100,
		History:  total * pct.History / 100,
		Response: total * pct.Response / 100,
	}
	b.History += total - b.Total()
	return b, nil
}

// CountTokens delegates to the tokenizer adapter.
func (a *Allocator) CountTokens(text string) int {
	return a.counter.CountTokens(text)
}

// CountMessage counts one chat message including framing overhead.
func (a *Allocator) CountMessage(role, content string) int {
	return perMessageOverhead + a.counter.CountTokens(role) + a.counter.CountTokens(content)
}

// CountConversation counts a message list including response priming.
func (a *Allocator) CountConversation(messages []ai.Message) int {
	total := responsePriming
	for _, m := range messages {
		total += a.CountMessage(m.Role, m.Content)
	}
	return total
}

// Truncate shortens text so that, with the truncation marker, it fits
// within maxTokens. With preserveStart true the prefix is kept and
// trailing content dropped; otherwise the suffix is kept.
func (a *Allocator) Truncate(text string, maxTokens int, preserveStart bool) string {
	if maxTokens <= 0 {
		return ""
	}
	current := a.counter.CountTokens(text)
	if current <= maxTokens {
		return text
	}

	// First guess by ratio with a small safety margin, then shrink
	// geometrically until the marker-included count fits.
	estimated := len(text) * maxTokens / current * 95 / 100
	if estimated < 1 {
		estimated = 1
	}
	if estimated > len(text) {
		estimated = len(text)
	}

	if preserveStart {
		truncated := text[:estimated]
		for len(truncated) > 0 && a.counter.CountTokens(truncated+truncationMarker) > maxTokens {
			truncated = truncated[:len(truncated)*9/10]
		}
		if len(truncated) == 0 {
			return ""
		}
		return truncated + truncationMarker
	}

	truncated := text[len(text)-estimated:]
	for len(truncated) > 0 && a.counter.CountTokens(truncationMarker+truncated) > maxTokens {
		truncated = truncated[len(truncated)-len(truncated)*9/10:]
	}
	if len(truncated) == 0 {
		return ""
	}
	return truncationMarker + truncated
}

// WasTruncated reports whether Truncate changed the text.
func WasTruncated(original, fitted string) bool {
	return original != fitted
}
