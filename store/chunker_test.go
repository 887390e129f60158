package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("short persona", 200, 50)
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].Seq)
	require.Equal(t, 0, chunks[0].Offset)
	require.Equal(t, "short persona", chunks[0].Content)

	require.Nil(t, ChunkText("", 200, 50))
}

func TestChunkTextOffsetsAndOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) // 500 bytes
	chunks := ChunkText(text, 200, 50)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		require.Equal(t, i, c.Seq)
		require.Equal(t, i*150, c.Offset)
		require.Equal(t, text[c.Offset:c.Offset+len(c.Content)], c.Content)
	}
	// Consecutive chunks share exactly the overlap.
	require.Equal(t, chunks[0].Content[150:], chunks[1].Content[:50])
	require.Equal(t, chunks[1].Content[150:], chunks[2].Content[:50])
	// The last chunk ends at the end of the text.
	last := chunks[2]
	require.Equal(t, len(text), last.Offset+len(last.Content))
}

func TestChunkTextShortFinalChunk(t *testing.T) {
	text := strings.Repeat("x", 230)
	chunks := ChunkText(text, 200, 50)

	require.Len(t, chunks, 2)
	require.Equal(t, 200, len(chunks[0].Content))
	require.Equal(t, 150, chunks[1].Offset)
	require.Equal(t, 80, len(chunks[1].Content))
}

func TestChunkTextReconstruction(t *testing.T) {
	text := strings.Repeat("the quick brown fox ", 40)
	chunks := ChunkText(text, 120, 30)

	rebuilt := chunks[0].Content
	for _, c := range chunks[1:] {
		rebuilt += c.Content[30:]
	}
	require.Equal(t, text, rebuilt)
}

func TestChunkTextDegenerateParams(t *testing.T) {
	// Overlap >= size cannot make progress, so the text stays whole.
	chunks := ChunkText(strings.Repeat("y", 500), 50, 50)
	require.Len(t, chunks, 1)
	require.Equal(t, 500, len(chunks[0].Content))

	chunks = ChunkText("abc", 0, 0)
	require.Len(t, chunks, 1)
}
