// Package retrieval ranks stored messages and persona chunks against a
// query vector. Sessions are bounded in practice, so a brute-force scan
// over the newest embedded messages is sufficient; older messages fall
// out of live search and are covered by summaries instead.
package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/animus-chat/animus/server/emotion"
	"github.com/animus-chat/animus/store"
)

// Source labels for ranked results.
const (
	SourceMessage = "message"
	SourcePersona = "persona"
)

// CandidateStore is the slice of the store the index reads.
type CandidateStore interface {
	ListEmbeddedMessages(ctx context.Context, sessionID string, limit int) ([]*store.Message, error)
	ListPersonaChunks(ctx context.Context, sessionID string) ([]*store.PersonaChunk, error)
}

// Result is one ranked candidate.
type Result struct {
	Content string
	Source  string
	Score   float64
	// Seq is the message sequence id; persona chunks use their chunk
	// sequence and never tie with messages on score in practice.
	Seq int64
	// Boost records the applied emotion boost factor (1 when none).
	Boost float64
}

// Index performs emotion-aware similarity search for one store.
type Index struct {
	store       CandidateStore
	boostFactor float64
	ceiling     int
}

// New creates an index. boostFactor scales the emotion boost; ceiling
// caps how many of the newest embedded messages participate in a scan.
func New(candidates CandidateStore, boostFactor float64, ceiling int) *Index {
	if ceiling <= 0 {
		ceiling = 2000
	}
	return &Index{
		store:       candidates,
		boostFactor: boostFactor,
		ceiling:     ceiling,
	}
}

// Search ranks messages and persona chunks by cosine similarity to the
// query vector. A candidate message sharing the query's non-neutral
// emotion is boosted by 1 + importance*boostFactor; persona chunks carry
// no emotion and are never boosted. Results are sorted by descending
// score, ties broken by the more recent sequence id.
func (idx *Index) Search(ctx context.Context, sessionID string, queryVec []float32, queryEmotion string, topK int) ([]*Result, error) {
	if len(queryVec) == 0 || topK <= 0 {
		return nil, nil
	}

	messages, err := idx.store.ListEmbeddedMessages(ctx, sessionID, idx.ceiling)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load embedded messages")
	}
	chunks, err := idx.store.ListPersonaChunks(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load persona chunks")
	}

	results := make([]*Result, 0, len(messages)+len(chunks))
	for _, m := range messages {
		similarity := Cosine(queryVec, m.Embedding)
		boost := 1.0
		if queryEmotion != emotion.Neutral && m.Emotion == queryEmotion {
			boost = 1.0 + m.Importance*idx.boostFactor
		}
		results = append(results, &Result{
			Content: m.Content,
			Source:  SourceMessage,
			Score:   similarity * boost,
			Seq:     m.Seq,
			Boost:   boost,
		})
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		results = append(results, &Result{
			Content: c.Content,
			Source:  SourcePersona,
			Score:   Cosine(queryVec, c.Embedding),
			Seq:     int64(c.Seq),
			Boost:   1.0,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq > results[j].Seq
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either has
// zero norm or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
