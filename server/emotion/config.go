package emotion

// Neutral is the label used when no keyword matches.
const Neutral = "neutral"

// Config is the data-driven classification table: keywords per label, a
// weight per label for importance scoring, and a fixed priority order for
// breaking count ties. Loaded once and immutable at runtime.
type Config struct {
	Keywords map[string][]string
	Weights  map[string]float64
	// Priority orders labels for tie-breaking; earlier wins.
	Priority []string
	// BoostWeight scales how strongly emotional confidence contributes
	// to importance.
	BoostWeight float64
}

// DefaultConfig returns the built-in emotion tables.
func DefaultConfig() *Config {
	return &Config{
		Keywords: map[string][]string{
			"joy": {
				"happy", "excited", "love", "wonderful", "amazing", "great",
				"fantastic", "thrilled", "delighted", "cheerful", "joyful",
				"glad", "pleased", "ecstatic", "elated", "😊", "😄", "❤️", "🥰",
			},
			"sadness": {
				"sad", "depressed", "hurt", "cry", "crying", "tears", "upset",
				"disappointed", "heartbroken", "miserable", "lonely", "down",
				"devastated", "gloomy", "melancholy", "😢", "😭", "💔",
			},
			"anger": {
				"angry", "furious", "hate", "annoyed", "frustrated", "mad",
				"rage", "irritated", "infuriated", "outraged", "bitter",
				"resentful", "hostile", "aggressive", "😠", "😡", "🤬",
			},
			"fear": {
				"scared", "afraid", "worried", "anxious", "terrified", "panic",
				"nervous", "frightened", "alarmed", "concerned", "uneasy",
				"apprehensive", "dread", "horror", "😰", "😨", "😱",
			},
			"surprise": {
				"surprised", "shocked", "amazed", "astonished", "stunned",
				"startled", "unexpected", "wow", "omg", "😮", "😲", "🤯",
			},
			"disgust": {
				"disgusted", "gross", "revolting", "repulsive", "nasty",
				"awful", "terrible", "horrible", "sickening", "🤢", "🤮",
			},
		},
		Weights: map[string]float64{
			"joy":      0.8,
			"sadness":  1.0,
			"anger":    0.9,
			"fear":     0.95,
			"surprise": 0.7,
			"disgust":  0.75,
			Neutral:    0.5,
		},
		Priority:    []string{"joy", "sadness", "anger", "fear", "surprise", "disgust"},
		BoostWeight: 0.3,
	}
}
