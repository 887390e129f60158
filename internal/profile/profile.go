package profile

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the memory engine.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the directory holding the per-session databases
	Data string
	// Driver is the database driver (sqlite)
	Driver string
	// Version is the current version of the server
	Version string

	// WorkingSetSize is the per-session recency buffer capacity.
	WorkingSetSize int // ANIMUS_WORKING_SET_SIZE (default: 20)
	// SummarizeThreshold triggers compaction once this many messages
	// have accumulated past the latest summary.
	SummarizeThreshold int // ANIMUS_SUMMARIZE_THRESHOLD (default: 20)

	// ContextTokens is the total token capacity split across buckets.
	ContextTokens int // ANIMUS_CONTEXT_TOKENS (default: 128000)
	// Budget percentages must sum to 100.
	SystemPercent   int // ANIMUS_SYSTEM_PERCENT (default: 20)
	RAGPercent      int // ANIMUS_RAG_PERCENT (default: 25)
	HistoryPercent  int // ANIMUS_HISTORY_PERCENT (default: 35)
	ResponsePercent int // ANIMUS_RESPONSE_PERCENT (default: 20)

	// ChunkSize and ChunkOverlap control persona windowing, in characters.
	ChunkSize    int // ANIMUS_CHUNK_SIZE (default: 200)
	ChunkOverlap int // ANIMUS_CHUNK_OVERLAP (default: 50)

	// BoostFactor scales the emotion boost applied during retrieval.
	BoostFactor float64 // ANIMUS_BOOST_FACTOR (default: 0.3)
	// SearchCeiling caps how many embedded messages participate in live
	// search; older messages are covered by summaries instead.
	SearchCeiling int // ANIMUS_SEARCH_CEILING (default: 2000)
	// TopK is the number of retrieval results included in context.
	TopK int // ANIMUS_TOP_K (default: 3)
	// EmbeddingDim is the fixed dimension of stored vectors.
	EmbeddingDim int // ANIMUS_EMBEDDING_DIM (default: 1536)

	// AI adapter configuration (OpenAI-compatible endpoint).
	AIBaseURL        string // ANIMUS_AI_BASE_URL
	AIAPIKey         string // ANIMUS_AI_API_KEY
	AIEmbeddingModel string // ANIMUS_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIChatModel      string // ANIMUS_AI_CHAT_MODEL (default: gpt-4o-mini)
}

// Default returns a profile with every tuning knob at its default value.
func Default() *Profile {
	return &Profile{
		Mode:               "dev",
		Port:               8231,
		Data:               "./data/sessions",
		Driver:             "sqlite",
		WorkingSetSize:     20,
		SummarizeThreshold: 20,
		ContextTokens:      128000,
		SystemPercent:      20,
		RAGPercent:         25,
		HistoryPercent:     35,
		ResponsePercent:    20,
		ChunkSize:          200,
		ChunkOverlap:       50,
		BoostFactor:        0.3,
		SearchCeiling:      2000,
		TopK:               3,
		EmbeddingDim:       1536,
		AIBaseURL:          "https://api.openai.com/v1",
		AIEmbeddingModel:   "text-embedding-3-small",
		AIChatModel:        "gpt-4o-mini",
	}
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// FromEnv loads configuration from ANIMUS_* environment variables.
// Unset or malformed values keep their current value.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("ANIMUS_MODE", p.Mode)
	p.Addr = getEnvOrDefault("ANIMUS_ADDR", p.Addr)
	p.Port = getEnvInt("ANIMUS_PORT", p.Port)
	p.Data = getEnvOrDefault("ANIMUS_DATA", p.Data)
	p.Driver = getEnvOrDefault("ANIMUS_DRIVER", p.Driver)

	p.WorkingSetSize = getEnvInt("ANIMUS_WORKING_SET_SIZE", p.WorkingSetSize)
	p.SummarizeThreshold = getEnvInt("ANIMUS_SUMMARIZE_THRESHOLD", p.SummarizeThreshold)

	p.ContextTokens = getEnvInt("ANIMUS_CONTEXT_TOKENS", p.ContextTokens)
	p.SystemPercent = getEnvInt("ANIMUS_SYSTEM_PERCENT", p.SystemPercent)
	p.RAGPercent = getEnvInt("ANIMUS_RAG_PERCENT", p.RAGPercent)
	p.HistoryPercent = getEnvInt("ANIMUS_HISTORY_PERCENT", p.HistoryPercent)
	p.ResponsePercent = getEnvInt("ANIMUS_RESPONSE_PERCENT", p.ResponsePercent)

	p.ChunkSize = getEnvInt("ANIMUS_CHUNK_SIZE", p.ChunkSize)
	p.ChunkOverlap = getEnvInt("ANIMUS_CHUNK_OVERLAP", p.ChunkOverlap)

	p.BoostFactor = getEnvFloat("ANIMUS_BOOST_FACTOR", p.BoostFactor)
	p.SearchCeiling = getEnvInt("ANIMUS_SEARCH_CEILING", p.SearchCeiling)
	p.TopK = getEnvInt("ANIMUS_TOP_K", p.TopK)
	p.EmbeddingDim = getEnvInt("ANIMUS_EMBEDDING_DIM", p.EmbeddingDim)

	p.AIBaseURL = getEnvOrDefault("ANIMUS_AI_BASE_URL", p.AIBaseURL)
	p.AIAPIKey = getEnvOrDefault("ANIMUS_AI_API_KEY", p.AIAPIKey)
	p.AIEmbeddingModel = getEnvOrDefault("ANIMUS_AI_EMBEDDING_MODEL", p.AIEmbeddingModel)
	p.AIChatModel = getEnvOrDefault("ANIMUS_AI_CHAT_MODEL", p.AIChatModel)
}

// Validate checks the profile for values the engine cannot run with.
func (p *Profile) Validate() error {
	if p.Driver != "sqlite" {
		return errors.Errorf("unknown driver %q: only sqlite is supported", p.Driver)
	}
	if p.WorkingSetSize <= 0 {
		return errors.New("working set size must be positive")
	}
	if p.SummarizeThreshold <= 0 {
		return errors.New("summarize threshold must be positive")
	}
	if p.ContextTokens <= 0 {
		return errors.New("context token capacity must be positive")
	}
	if sum := p.SystemPercent + p.RAGPercent + p.HistoryPercent + p.ResponsePercent; sum != 100 {
		return errors.Errorf("budget percentages must sum to 100, got %d", sum)
	}
	if p.ChunkSize <= 0 || p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return errors.Errorf("invalid chunking: size=%d overlap=%d", p.ChunkSize, p.ChunkOverlap)
	}
	if p.BoostFactor < 0 {
		return errors.New("boost factor must not be negative")
	}
	if p.SearchCeiling <= 0 {
		return errors.New("search ceiling must be positive")
	}
	if p.TopK <= 0 {
		return errors.New("top-k must be positive")
	}
	if p.EmbeddingDim <= 0 {
		return errors.New("embedding dimension must be positive")
	}
	return nil
}

func (p *Profile) String() string {
	return fmt.Sprintf("mode=%s addr=%s port=%d data=%s driver=%s", p.Mode, p.Addr, p.Port, p.Data, p.Driver)
}
