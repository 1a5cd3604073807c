package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"movie-manager/internal/models"
)

// Config holds all configuration for the movie manager.
type Config struct {
	TMDB      TMDBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Port      string
	LogLevel  slog.Level

	SearchDebounce   time.Duration
	SimulatedLatency time.Duration
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig bounds requests per client in a fixed window.
type RateLimitConfig struct {
	Max           int
	WindowSeconds int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	rateLimitMax, _ := strconv.Atoi(getEnv("RATE_LIMIT_MAX", "120"))
	rateLimitWindow, _ := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))
	debounceMS, _ := strconv.Atoi(getEnv("SEARCH_DEBOUNCE_MS", "500"))
	latencyMS, _ := strconv.Atoi(getEnv("SIMULATED_LATENCY_MS", "500"))

	cfg := &Config{
		TMDB: TMDBConfig{
			APIKey:       os.Getenv("TMDB_API_KEY"),
			BaseURL:      getEnv("TMDB_BASE_URL", models.DefaultTMDBBase),
			ImageBaseURL: getEnv("TMDB_IMAGE_BASE_URL", models.TMDBImageBaseW500),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		RateLimit: RateLimitConfig{
			Max:           rateLimitMax,
			WindowSeconds: rateLimitWindow,
		},
		Port:             getEnv("SERVER_PORT", "8080"),
		LogLevel:         parseLevel(getEnv("LOG_LEVEL", "info")),
		SearchDebounce:   time.Duration(debounceMS) * time.Millisecond,
		SimulatedLatency: time.Duration(latencyMS) * time.Millisecond,
	}

	return cfg, nil
}

// Warnings lists settings an operator should fix.
func (c *Config) Warnings() []string {
	var w []string
	if c.TMDB.APIKey == "" {
		w = append(w, "TMDB_API_KEY is not set; requests to TMDB will be rejected")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.WindowSeconds <= 0 {
		w = append(w, "rate limiting disabled by RATE_LIMIT_MAX/RATE_LIMIT_WINDOW_SECONDS")
	}
	return w
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
