package retrieval

import (
	"fmt"
	"strings"
)

var sourceLabels = map[string]string{
	SourcePersona: "Character Detail",
	SourceMessage: "Past Conversation",
}

// FormatResults renders ranked results as a single retrieved-context
// block for the prompt. Returns "" when there is nothing to show; the
// caller fits the block to its token budget.
func FormatResults(results []*Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Retrieved Context\n")
	b.WriteString("The following information is relevant to the current conversation:\n")
	for _, r := range results {
		label, ok := sourceLabels[r.Source]
		if !ok {
			label = "Relevant Context"
		}
		fmt.Fprintf(&b, "\n%s (relevance: %.2f):\n%s\n", label, r.Score, r.Content)
	}
	return b.String()
}
