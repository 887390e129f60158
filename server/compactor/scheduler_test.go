package compactor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/animus-chat/animus/plugin/ai"
	"github.com/animus-chat/animus/store"
)

type fakeCompactionStore struct {
	mu        sync.Mutex
	count     int64
	summaries []*store.Summary
}

func (f *fakeCompactionStore) CountMessages(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeCompactionStore) GetLatestSummary(_ context.Context, _ string) (*store.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.summaries) == 0 {
		return nil, nil
	}
	return f.summaries[len(f.summaries)-1], nil
}

func (f *fakeCompactionStore) ListMessageRange(_ context.Context, _ string, startSeq, endSeq int64) ([]*store.Message, error) {
	out := []*store.Message{}
	for seq := startSeq; seq < endSeq; seq++ {
		out = append(out, &store.Message{
			Seq:     seq,
			Role:    store.RoleUser,
			Content: fmt.Sprintf("message %d", seq),
			Emotion: "neutral",
		})
	}
	return out, nil
}

func (f *fakeCompactionStore) CreateSummary(_ context.Context, create *store.CreateSummary) (*store.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := &store.Summary{
		ID:       int64(len(f.summaries) + 1),
		Content:  create.Content,
		StartSeq: create.StartSeq,
		EndSeq:   create.EndSeq,
	}
	f.summaries = append(f.summaries, summary)
	return summary, nil
}

func (f *fakeCompactionStore) summaryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summaries)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestShouldSummarizeThreshold(t *testing.T) {
	fake := &fakeCompactionStore{count: 19}
	s := New(fake, &ai.MockSummarizerService{}, 20, nil)
	defer s.Close()

	due, _, _, err := s.ShouldSummarize(context.Background(), "s1")
	require.NoError(t, err)
	require.False(t, due)

	fake.count = 20
	due, start, end, err := s.ShouldSummarize(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, due)
	require.Equal(t, int64(0), start)
	require.Equal(t, int64(20), end)
}

func TestShouldSummarizeResumesAfterLatestSummary(t *testing.T) {
	fake := &fakeCompactionStore{
		count:     45,
		summaries: []*store.Summary{{ID: 1, StartSeq: 0, EndSeq: 20}},
	}
	s := New(fake, &ai.MockSummarizerService{}, 20, nil)
	defer s.Close()

	due, start, end, err := s.ShouldSummarize(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, due)
	require.Equal(t, int64(20), start)
	require.Equal(t, int64(40), end)
}

func TestEvaluateCompactsOldestWindow(t *testing.T) {
	fake := &fakeCompactionStore{count: 25}
	s := New(fake, &ai.MockSummarizerService{Summary: "condensed"}, 20, nil)
	defer s.Close()

	s.Evaluate(context.Background(), "s1")
	waitFor(t, func() bool { return fake.summaryCount() == 1 })

	fake.mu.Lock()
	summary := fake.summaries[0]
	fake.mu.Unlock()
	require.Equal(t, "condensed", summary.Content)
	require.Equal(t, int64(0), summary.StartSeq)
	require.Equal(t, int64(20), summary.EndSeq)
}

func TestEvaluateDeduplicatesInFlightTasks(t *testing.T) {
	fake := &fakeCompactionStore{count: 25}

	release := make(chan struct{})
	var calls int64
	var callsMu sync.Mutex
	summarizer := &ai.MockSummarizerService{Fn: func(_ context.Context, _ []ai.Message) (string, error) {
		callsMu.Lock()
		calls++
		callsMu.Unlock()
		<-release
		return "condensed", nil
	}}
	s := New(fake, summarizer, 20, nil)
	defer s.Close()

	s.Evaluate(context.Background(), "s1")
	waitFor(t, func() bool { return s.InFlight("s1") })

	// Repeated triggers while the first task runs are no-ops.
	for i := 0; i < 10; i++ {
		s.Evaluate(context.Background(), "s1")
	}
	close(release)
	waitFor(t, func() bool { return fake.summaryCount() == 1 })
	waitFor(t, func() bool { return !s.InFlight("s1") })

	callsMu.Lock()
	defer callsMu.Unlock()
	require.Equal(t, int64(1), calls)
}

func TestFailedSummarizationRetriesOnNextTrigger(t *testing.T) {
	fake := &fakeCompactionStore{count: 25}

	var attempts int64
	var attemptsMu sync.Mutex
	summarizer := &ai.MockSummarizerService{Fn: func(_ context.Context, _ []ai.Message) (string, error) {
		attemptsMu.Lock()
		defer attemptsMu.Unlock()
		attempts++
		if attempts == 1 {
			return "", errors.New("model unavailable")
		}
		return "condensed", nil
	}}
	s := New(fake, summarizer, 20, nil)
	defer s.Close()

	s.Evaluate(context.Background(), "s1")
	waitFor(t, func() bool { return !s.InFlight("s1") })
	require.Zero(t, fake.summaryCount())

	// The range stays uncovered, so the trigger fires again.
	s.Evaluate(context.Background(), "s1")
	waitFor(t, func() bool { return fake.summaryCount() == 1 })
}

func TestEmotionTagsInTranscript(t *testing.T) {
	fake := &fakeCompactionStore{count: 20}

	var got []ai.Message
	var gotMu sync.Mutex
	summarizer := &ai.MockSummarizerService{Fn: func(_ context.Context, window []ai.Message) (string, error) {
		gotMu.Lock()
		got = window
		gotMu.Unlock()
		return "ok", nil
	}}
	s := New(&taggedStore{fakeCompactionStore: fake}, summarizer, 20, nil)
	defer s.Close()

	s.Evaluate(context.Background(), "s1")
	waitFor(t, func() bool { return fake.summaryCount() == 1 })

	gotMu.Lock()
	defer gotMu.Unlock()
	require.Len(t, got, 20)
	require.Equal(t, "user [sadness]", got[0].Role)
	require.Equal(t, "user", got[1].Role)
}

// taggedStore marks the first message of every range as sad.
type taggedStore struct {
	*fakeCompactionStore
}

func (s *taggedStore) ListMessageRange(ctx context.Context, sessionID string, startSeq, endSeq int64) ([]*store.Message, error) {
	messages, err := s.fakeCompactionStore.ListMessageRange(ctx, sessionID, startSeq, endSeq)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		messages[0].Emotion = "sadness"
	}
	return messages, nil
}
