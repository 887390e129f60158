package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/animus-chat/animus/internal/profile"
	"github.com/animus-chat/animus/plugin/ai"
	"github.com/animus-chat/animus/store"
	teststore "github.com/animus-chat/animus/store/test"
)

func newTestEngine(t *testing.T, embedder ai.EmbeddingService, summarizer ai.SummarizerService) (*Engine, *store.Store) {
	t.Helper()

	p := profile.Default()
	ts := teststore.NewTestingStore(context.Background(), t)
	eng := New(p, ts, embedder, summarizer, nil, nil)
	t.Cleanup(eng.Close)
	return eng, ts
}

func TestStoreMessageScoresAndEmbeds(t *testing.T) {
	ctx := context.Background()
	eng, ts := newTestEngine(t, &ai.MockEmbeddingService{}, &ai.MockSummarizerService{})

	m, err := eng.StoreMessage(ctx, "alice", store.RoleUser, "I am so happy and excited!")
	require.NoError(t, err)
	require.Equal(t, int64(0), m.Seq)
	require.Equal(t, "joy", m.Emotion)
	require.Greater(t, m.Importance, 0.5)
	require.True(t, m.Embedded())

	// The message is durable, not just cached.
	stored, err := ts.ListRecentMessages(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.True(t, stored[0].Embedded())
}

func TestStoreMessageDegradesWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	failing := &ai.MockEmbeddingService{Fn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("embedding endpoint down")
	}}
	eng, ts := newTestEngine(t, failing, &ai.MockSummarizerService{})

	m, err := eng.StoreMessage(ctx, "alice", store.RoleUser, "still stored")
	require.NoError(t, err)
	require.False(t, m.Embedded())

	embedded, err := ts.ListEmbeddedMessages(ctx, "alice", 10)
	require.NoError(t, err)
	require.Empty(t, embedded)
}

func TestStoreMessageValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, &ai.MockEmbeddingService{}, &ai.MockSummarizerService{})

	_, err := eng.StoreMessage(ctx, "", store.RoleUser, "no session")
	require.Error(t, err)

	_, err = eng.StoreMessage(ctx, "alice", store.Role("narrator"), "bad role")
	require.Error(t, err)
}

func TestBuildContextOrdering(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, &ai.MockEmbeddingService{}, &ai.MockSummarizerService{})

	require.NoError(t, eng.SetPersona(ctx, "alice", "You are a pirate."))
	_, err := eng.StoreMessage(ctx, "alice", store.RoleUser, "ahoy")
	require.NoError(t, err)
	_, err = eng.StoreMessage(ctx, "alice", store.RoleAssistant, "ahoy back")
	require.NoError(t, err)

	entries, err := eng.BuildContext(ctx, "alice", "where is the treasure?")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	require.Equal(t, "system", entries[0].Role)
	require.Contains(t, entries[0].Content, "pirate")
	last := entries[len(entries)-1]
	require.Equal(t, "user", last.Role)
	require.Equal(t, "where is the treasure?", last.Content)

	// History appears between the system entries and the user message, in
	// conversation order.
	var historyContents []string
	for _, e := range entries[1 : len(entries)-1] {
		if e.Role != "system" {
			historyContents = append(historyContents, e.Content)
		}
	}
	require.Equal(t, []string{"ahoy", "ahoy back"}, historyContents)
}

func TestBuildContextSurvivesEmbeddingOutage(t *testing.T) {
	ctx := context.Background()
	failing := &ai.MockEmbeddingService{Fn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("down")
	}}
	eng, _ := newTestEngine(t, failing, &ai.MockSummarizerService{})

	_, err := eng.StoreMessage(ctx, "alice", store.RoleUser, "hello")
	require.NoError(t, err)

	entries, err := eng.BuildContext(ctx, "alice", "still works?")
	require.NoError(t, err)
	require.Equal(t, "still works?", entries[len(entries)-1].Content)
}

func TestWorkingSetRebuiltAfterRestart(t *testing.T) {
	ctx := context.Background()
	p := profile.Default()
	ts := teststore.NewTestingStore(ctx, t)

	first := New(p, ts, &ai.MockEmbeddingService{}, &ai.MockSummarizerService{}, nil, nil)
	for i := 0; i < 3; i++ {
		_, err := first.StoreMessage(ctx, "alice", store.RoleUser, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}
	first.Close()

	// A fresh engine over the same store reloads history on first use.
	second := New(p, ts, &ai.MockEmbeddingService{}, &ai.MockSummarizerService{}, nil, nil)
	t.Cleanup(second.Close)

	entries, err := second.BuildContext(ctx, "alice", "back again")
	require.NoError(t, err)

	var historyContents []string
	for _, e := range entries {
		if e.Role == "user" && e.Content != "back again" {
			historyContents = append(historyContents, e.Content)
		}
	}
	require.Equal(t, []string{"turn 0", "turn 1", "turn 2"}, historyContents)
}

func TestPersonaLifecycle(t *testing.T) {
	ctx := context.Background()
	eng, ts := newTestEngine(t, &ai.MockEmbeddingService{}, &ai.MockSummarizerService{})

	_, ok, err := eng.GetPersona(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)

	long := ""
	for i := 0; i < 30; i++ {
		long += fmt.Sprintf("Trait %d: endlessly curious about the sea. ", i)
	}
	require.NoError(t, eng.SetPersona(ctx, "alice", long))

	got, ok, err := eng.GetPersona(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, long, got)

	// The chunk index was derived and embedded.
	chunks, err := ts.ListPersonaChunks(ctx, "alice")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.NotEmpty(t, c.Embedding)
	}
}

func TestCompactionTriggersAtThreshold(t *testing.T) {
	ctx := context.Background()
	eng, ts := newTestEngine(t, &ai.MockEmbeddingService{}, &ai.MockSummarizerService{Summary: "what came before"})

	for i := 0; i < 25; i++ {
		_, err := eng.StoreMessage(ctx, "alice", store.RoleUser, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		latest, err := ts.GetLatestSummary(ctx, "alice")
		require.NoError(t, err)
		if latest != nil {
			require.Equal(t, int64(0), latest.StartSeq)
			require.Equal(t, int64(20), latest.EndSeq)
			require.Equal(t, "what came before", latest.Content)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("summary was not created before deadline")
}

func TestHealthSnapshot(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, &ai.MockEmbeddingService{}, &ai.MockSummarizerService{})

	health := eng.HealthSnapshot(ctx)
	require.True(t, health.StoreReachable)
	require.Zero(t, health.ActiveSessions)

	_, err := eng.StoreMessage(ctx, "alice", store.RoleUser, "hi")
	require.NoError(t, err)
	require.Equal(t, 1, eng.HealthSnapshot(ctx).ActiveSessions)
}
