package ai

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackCharsPerToken is the heuristic divisor used when no BPE
// encoding is available: roughly four characters per token for English.
const fallbackCharsPerToken = 4

// TiktokenCounter counts tokens with the cl100k_base BPE and degrades to
// the character heuristic when the encoding cannot be loaded.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter builds the counter. Encoding load failure is logged
// and not fatal; the counter then estimates heuristically.
func NewTiktokenCounter() *TiktokenCounter {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("failed to load cl100k_base encoding, falling back to heuristic token counting", "error", err)
		return &TiktokenCounter{}
	}
	return &TiktokenCounter{encoding: encoding}
}

func (c *TiktokenCounter) CountTokens(text string) int {
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	return HeuristicTokens(text)
}

// HeuristicTokens estimates the token count as len(text)/4, never
// reporting zero for non-empty text.
func HeuristicTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / fallbackCharsPerToken
	if n < 1 {
		return 1
	}
	return n
}

// HeuristicCounter always uses the character heuristic. It backs the
// allocator when no tokenizer adapter is configured and keeps tests
// independent of BPE data files.
type HeuristicCounter struct{}

func (HeuristicCounter) CountTokens(text string) int {
	return HeuristicTokens(text)
}
