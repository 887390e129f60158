package tokenbudget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/animus-chat/animus/plugin/ai"
)

func TestAllocateDefaultSplit(t *testing.T) {
	a := NewAllocator(nil)

	budget, err := a.Allocate(128000, Percentages{System: 20, RAG: 25, History: 35, Response: 20})
	require.NoError(t, err)
	require.Equal(t, 25600, budget.System)
	require.Equal(t, 32000, budget.RAG)
	require.Equal(t, 44800, budget.History)
	require.Equal(t, 25600, budget.Response)
	require.Equal(t, 128000, budget.Total())
}

func TestAllocateRemainderGoesToHistory(t *testing.T) {
	a := NewAllocator(nil)

	// 1003 does not divide evenly; the buckets must still sum exactly.
	budget, err := a.Allocate(1003, Percentages{System: 20, RAG: 25, History: 35, Response: 20})
	require.NoError(t, err)
	require.Equal(t, 1003, budget.Total())
	require.Equal(t, 200, budget.System)
	require.Equal(t, 250, budget.RAG)
	require.Equal(t, 200, budget.Response)
	require.Equal(t, 353, budget.History)
}

func TestAllocateRejectsBadConfig(t *testing.T) {
	a := NewAllocator(nil)

	_, err := a.Allocate(1000, Percentages{System: 50, RAG: 25, History: 35, Response: 20})
	require.Error(t, err)

	_, err = a.Allocate(1000, Percentages{System: -10, RAG: 45, History: 45, Response: 20})
	require.Error(t, err)

	_, err = a.Allocate(0, Percentages{System: 25, RAG: 25, History: 25, Response: 25})
	require.Error(t, err)
}

func TestCountMessageOverhead(t *testing.T) {
	a := NewAllocator(ai.HeuristicCounter{})

	// 4 framing + role + content by the chars/4 heuristic.
	content := strings.Repeat("w", 40)
	require.Equal(t, 4+1+10, a.CountMessage("user", content))
}

func TestCountConversationPriming(t *testing.T) {
	a := NewAllocator(ai.HeuristicCounter{})

	messages := []ai.Message{
		{Role: "user", Content: strings.Repeat("a", 40)},
		{Role: "assistant", Content: strings.Repeat("b", 80)},
	}
	want := 3 + (4 + 1 + 10) + (4 + 2 + 20)
	require.Equal(t, want, a.CountConversation(messages))
}

func TestTruncatePreservesStart(t *testing.T) {
	a := NewAllocator(ai.HeuristicCounter{})

	text := strings.Repeat("abcd", 100) // 100 tokens heuristically
	fitted := a.Truncate(text, 10, true)

	require.True(t, strings.HasSuffix(fitted, "..."))
	require.True(t, strings.HasPrefix(text, strings.TrimSuffix(fitted, "...")))
	require.LessOrEqual(t, a.CountTokens(fitted), 10)
	require.True(t, WasTruncated(text, fitted))
}

func TestTruncatePreservesEnd(t *testing.T) {
	a := NewAllocator(ai.HeuristicCounter{})

	text := strings.Repeat("wxyz", 100)
	fitted := a.Truncate(text, 10, false)

	require.True(t, strings.HasPrefix(fitted, "..."))
	require.True(t, strings.HasSuffix(text, strings.TrimPrefix(fitted, "...")))
	require.LessOrEqual(t, a.CountTokens(fitted), 10)
}

func TestTruncateNoOpWhenFits(t *testing.T) {
	a := NewAllocator(ai.HeuristicCounter{})

	text := "fits easily"
	require.Equal(t, text, a.Truncate(text, 1000, true))
	require.False(t, WasTruncated(text, a.Truncate(text, 1000, true)))
}

func TestTruncateZeroBudget(t *testing.T) {
	a := NewAllocator(ai.HeuristicCounter{})

	require.Empty(t, a.Truncate("anything", 0, true))
	require.Empty(t, a.Truncate("anything", -5, false))
}
