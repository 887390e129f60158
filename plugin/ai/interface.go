// Package ai holds the adapters for the external model services the
// engine consumes: the embedding encoder, the summarizer, and the
// tokenizer. All of them are stateless and safe for concurrent use.
package ai

import "context"

// Message is a role-tagged piece of conversation handed to an adapter.
type Message struct {
	Role    string
	Content string
}

// EmbeddingService encodes text into a fixed-dimension vector. A failure
// is never fatal to the caller's turn: messages are stored without a
// vector and excluded from semantic search.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SummarizerService condenses an ordered message window into prose. A
// failure leaves the window uncovered; the scheduler retries on the next
// trigger.
type SummarizerService interface {
	Summarize(ctx context.Context, messages []Message) (string, error)
}

// TokenCounter estimates the model token count of a string. Counting must
// never fail; implementations degrade to a heuristic internally.
type TokenCounter interface {
	CountTokens(text string) int
}
