package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL   string
	RedisURL      string
	MigrationsDir string
	Port          string

	// APITokens maps bearer tokens to the user they authenticate.
	APITokens map[string]int64

	WeatherAPIURL  string
	WeatherAPIKey  string
	WeatherTimeout time.Duration

	LocationCacheTTL   time.Duration
	RateLimitPerMinute int

	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
}

// Load reads .env when present, then environment variables, applying
// defaults where unset.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("LOCATION_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.Atoi(envOrDefault("RATE_LIMIT_PER_MINUTE", "60"))
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid RATE_LIMIT_PER_MINUTE")
	}

	debug, err := strconv.ParseBool(envOrDefault("APP_DEBUG", "false"))
	if err != nil {
		return nil, errors.New("invalid APP_DEBUG")
	}

	tokens, err := ParseTokens(os.Getenv("API_TOKENS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		MigrationsDir:      envOrDefault("MIGRATIONS_DIR", "migrations"),
		Port:               envOrDefault("PORT", "8080"),
		APITokens:          tokens,
		WeatherAPIURL:      strings.TrimRight(envOrDefault("WEATHER_API_URL", "https://api.weatherapi.com/v1"), "/"),
		WeatherAPIKey:      os.Getenv("WEATHER_API_KEY"),
		WeatherTimeout:     weatherTimeout,
		LocationCacheTTL:   cacheTTL,
		RateLimitPerMinute: rateLimit,
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		Debug:              debug,
		ShutdownTimeout:    shutdownTimeout,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.WeatherAPIKey == "" {
		return nil, errors.New("WEATHER_API_KEY is required")
	}
	if len(cfg.APITokens) == 0 {
		return nil, errors.New("API_TOKENS is required")
	}

	return cfg, nil
}

// ParseTokens parses "token:userID,token:userID" into a lookup table.
func ParseTokens(s string) (map[string]int64, error) {
	tokens := make(map[string]int64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		token, rawID, ok := strings.Cut(pair, ":")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return nil, fmt.Errorf("invalid API_TOKENS entry %q: want token:userID", pair)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid API_TOKENS user id in %q", pair)
		}
		if _, dup := tokens[token]; dup {
			return nil, errors.New("duplicate token in API_TOKENS")
		}
		tokens[token] = id
	}
	return tokens, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
