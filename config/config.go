package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// HTTP
	ListenAddr  string
	MetricsAddr string

	// Enrichment (OpenAI-compatible endpoint)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	EnrichTimeout time.Duration
	EnrichRPS     float64

	// Optional stores
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JournalPath   string
	JournalMaxAge time.Duration

	// Sessions
	SessionIdleTTL time.Duration

	// Tick table overrides
	TickTablePath string
}

// Load reads configuration from environment variables with sensible defaults.
// Optional subsystems (Redis, journal) stay off when their vars are empty.
func Load() *Config {
	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		EnrichTimeout: getDuration("ENRICH_TIMEOUT", 20*time.Second),
		EnrichRPS:     getFloat("ENRICH_RPS", 5),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		JournalPath:   getEnv("JOURNAL_PATH", ""),
		JournalMaxAge: getDuration("JOURNAL_MAX_AGE", 7*24*time.Hour),

		SessionIdleTTL: getDuration("SESSION_IDLE_TTL", 2*time.Hour),

		TickTablePath: getEnv("TICK_TABLE_PATH", ""),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
