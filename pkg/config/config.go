package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mikeboe/usecase-scout/pkg/research"
	"github.com/mikeboe/usecase-scout/pkg/research/tools"
)

// DefaultUserAgent identifies the fetcher as a desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36"

type Config struct {
	GoogleApiKey   string
	DatabaseURL    string
	ReasoningModel string
	FastModel      string
	EmbeddingModel string
	CollectionName string
	Port           string
	ChunkSize      int
	ChunkOverlap   int
	LogLevel       string

	UserAgent        string
	FetchTimeout     time.Duration
	SearchTimeout    time.Duration
	SearchMaxResults int
	CrawlMaxDepth    int
	CrawlMaxPages    int
	CrawlWorkers     int
	TextBudget       int
	MaxUseCases      int
}

// Load reads configuration from the environment, loading a .env file first
// when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		GoogleApiKey:   getEnv("GOOGLE_API_KEY", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ReasoningModel: getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:      getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		CollectionName: getEnv("COLLECTION_NAME", "company_corpus"),
		Port:           getEnv("PORT", "8081"),
		ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		UserAgent:        getEnv("USER_AGENT", DefaultUserAgent),
		FetchTimeout:     getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		SearchTimeout:    getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),
		SearchMaxResults: getEnvAsInt("SEARCH_MAX_RESULTS", 10),
		CrawlMaxDepth:    getEnvAsInt("CRAWL_MAX_DEPTH", 1),
		CrawlMaxPages:    getEnvAsInt("CRAWL_MAX_PAGES", 25),
		CrawlWorkers:     getEnvAsInt("CRAWL_WORKERS", 1),
		TextBudget:       getEnvAsInt("TEXT_BUDGET", 5000),
		MaxUseCases:      getEnvAsInt("MAX_USE_CASES", 3),
	}
}

// FetchOptions builds the page fetcher settings.
func (c *Config) FetchOptions() tools.FetchOptions {
	return tools.FetchOptions{
		UserAgent: c.UserAgent,
		Timeout:   c.FetchTimeout,
	}
}

// CrawlOptions builds the crawler settings.
func (c *Config) CrawlOptions() research.CrawlOptions {
	return research.CrawlOptions{
		MaxPages: c.CrawlMaxPages,
		Workers:  c.CrawlWorkers,
	}
}

// EngineOptions builds the company research settings.
func (c *Config) EngineOptions() research.EngineOptions {
	return research.EngineOptions{
		MaxResults:   c.SearchMaxResults,
		WebsiteDepth: c.CrawlMaxDepth,
		TextBudget:   c.TextBudget,
	}
}

// NewLogger returns a stdout text logger at the given level. Unknown levels
// fall back to info.
func NewLogger(level string) *slog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo is NewLogger writing to w.
func NewLoggerTo(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("10s") or a bare number of
// seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
