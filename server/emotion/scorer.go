// Package emotion classifies text against a fixed keyword table and
// derives a deterministic importance score from it. The scorer is pure:
// identical input always yields the identical result.
package emotion

import (
	"fmt"
	"strings"
)

// pronouns are counted as a signal of personal investment.
var pronouns = []string{"i ", "me ", "my "}

// Result is the outcome of scoring one message.
type Result struct {
	// Emotion is the dominant label, or "neutral" when nothing matched.
	Emotion string
	// Confidence is min(hits/3, 1) for the dominant label.
	Confidence float64
	// Importance is in [0, 1].
	Importance float64
}

// Scorer classifies text using the configured tables.
type Scorer struct {
	config *Config
}

// NewScorer creates a scorer over the given tables; nil selects the
// defaults.
func NewScorer(config *Config) *Scorer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scorer{config: config}
}

// Score classifies the text and computes its importance.
func (s *Scorer) Score(text string) Result {
	lower := strings.ToLower(text)

	// Count keyword occurrences per label. Iteration follows the
	// declared priority order so ties resolve deterministically, never
	// by map order.
	counts := make(map[string]int, len(s.config.Priority))
	for _, label := range s.config.Priority {
		total := 0
		for _, keyword := range s.config.Keywords[label] {
			total += strings.Count(lower, keyword)
		}
		counts[label] = total
	}

	dominant := Neutral
	best := 0
	for _, label := range s.config.Priority {
		if counts[label] > best {
			dominant = label
			best = counts[label]
		}
	}

	confidence := float64(best) / 3.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Result{
		Emotion:    dominant,
		Confidence: confidence,
		Importance: s.importance(text, dominant, confidence),
	}
}

// importance computes the deterministic importance score:
// base 0.5, plus weighted emotional confidence, length, question marks,
// exclamation marks, and personal pronouns, clamped to [0, 1].
func (s *Scorer) importance(text, emotion string, confidence float64) float64 {
	score := 0.5

	if emotion != Neutral {
		score += confidence * s.config.Weights[emotion] * s.config.BoostWeight
	}
	if len(text) > 200 {
		score += 0.15
	}
	score += capped(float64(strings.Count(text, "?"))*0.10, 0.15)
	score += capped(float64(strings.Count(text, "!"))*0.05, 0.10)

	// Pad the lowercased text so pronouns at the very start still match
	// their trailing-space form.
	lower := " " + strings.ToLower(text) + " "
	pronounCount := 0
	for _, pronoun := range pronouns {
		pronounCount += strings.Count(lower, pronoun)
	}
	score += capped(float64(pronounCount)*0.05, 0.10)

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

// GuidancePrompt renders an emotional-context block for the system entry
// when the classification is confident enough to act on. Returns "" for
// neutral or low-confidence results.
func (s *Scorer) GuidancePrompt(result Result) string {
	if result.Emotion == Neutral || result.Confidence < 0.4 {
		return ""
	}

	guidance := map[string]string{
		"joy":      "Respond with enthusiasm and positive reinforcement.",
		"sadness":  "Respond with empathy, validation, and gentle support.",
		"anger":    "Respond calmly with understanding and de-escalation.",
		"fear":     "Respond reassuringly with comfort and practical suggestions.",
		"surprise": "Acknowledge the unexpected nature and provide clarity.",
		"disgust":  "Validate their feelings and redirect if appropriate.",
	}

	var b strings.Builder
	b.WriteString("## Emotional Context\n")
	fmt.Fprintf(&b, "User's current emotional state: %s (confidence: %.0f%%)", result.Emotion, result.Confidence*100)
	if line, ok := guidance[result.Emotion]; ok {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func capped(value, max float64) float64 {
	if value > max {
		return max
	}
	return value
}
