package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/animus-chat/animus/store"
)

func msg(seq int64) *store.Message {
	return &store.Message{Seq: seq, Role: store.RoleUser, Content: fmt.Sprintf("message %d", seq)}
}

func seqs(messages []*store.Message) []int64 {
	out := make([]int64, len(messages))
	for i, m := range messages {
		out[i] = m.Seq
	}
	return out
}

func TestPushAndSnapshotOrder(t *testing.T) {
	ws := New(5)

	for i := int64(0); i < 3; i++ {
		ws.Push("s1", msg(i))
	}
	require.Equal(t, []int64{0, 1, 2}, seqs(ws.Snapshot("s1")))
	require.Equal(t, 3, ws.Len("s1"))
}

func TestEvictionKeepsNewest(t *testing.T) {
	ws := New(5)

	for i := int64(0); i < 12; i++ {
		ws.Push("s1", msg(i))
	}
	require.Equal(t, 5, ws.Len("s1"))
	require.Equal(t, []int64{7, 8, 9, 10, 11}, seqs(ws.Snapshot("s1")))
}

func TestSeedIsNoOpWhenPresent(t *testing.T) {
	ws := New(5)

	ws.Push("s1", msg(42))
	ws.Seed("s1", []*store.Message{msg(0), msg(1)})

	// The live buffer wins over the stale storage read.
	require.Equal(t, []int64{42}, seqs(ws.Snapshot("s1")))
}

func TestSeedTrimsToCapacity(t *testing.T) {
	ws := New(3)

	messages := make([]*store.Message, 10)
	for i := range messages {
		messages[i] = msg(int64(i))
	}
	ws.Seed("s1", messages)
	require.Equal(t, []int64{7, 8, 9}, seqs(ws.Snapshot("s1")))
}

func TestSessionsAreIsolated(t *testing.T) {
	ws := New(5)

	ws.Push("a", msg(1))
	ws.Push("b", msg(2))

	require.Equal(t, []int64{1}, seqs(ws.Snapshot("a")))
	require.Equal(t, []int64{2}, seqs(ws.Snapshot("b")))
	require.Equal(t, 2, ws.ActiveSessions())
	require.Nil(t, ws.Snapshot("c"))
	require.False(t, ws.Has("c"))
}

func TestConcurrentPushBounded(t *testing.T) {
	ws := New(10)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ws.Push("shared", msg(int64(g*100+i)))
				ws.Snapshot("shared")
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, 10, ws.Len("shared"))
}
