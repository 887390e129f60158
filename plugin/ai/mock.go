package ai

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbeddingService returns deterministic vectors for tests. When Fn
// is set it is called instead.
type MockEmbeddingService struct {
	Dim int
	Fn  func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Fn != nil {
		return m.Fn(ctx, text)
	}
	dim := m.Dim
	if dim == 0 {
		dim = 8
	}
	// Derive a unit-norm vector from the text hash so equal texts embed
	// equally and different texts usually do not.
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed>>11)) / float64(1<<52)
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// MockSummarizerService returns a canned summary for tests. When Fn is
// set it is called instead.
type MockSummarizerService struct {
	Summary string
	Fn      func(ctx context.Context, messages []Message) (string, error)
}

func (m *MockSummarizerService) Summarize(ctx context.Context, messages []Message) (string, error) {
	if m.Fn != nil {
		return m.Fn(ctx, messages)
	}
	if m.Summary != "" {
		return m.Summary, nil
	}
	return "summary", nil
}
