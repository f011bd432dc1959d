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

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	AppName    string
	AppVersion string
	Debug      bool
	LogLevel   string
	Port       string

	// Generative model
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	LLMURL       string
	LLMModel     string
	LLMTimeout   time.Duration

	// Geolocation
	GeolocationURL     string
	GeolocationTimeout time.Duration

	// Optional infrastructure; empty disables the feature.
	RedisAddr   string
	GeoCacheTTL time.Duration
	DatabaseURL string

	CORSOrigins []string

	// Proxies whose X-Forwarded-For is believed; empty means the socket peer is the client.
	TrustedProxies []string

	// Per-client throttle on the news endpoints; RateLimitRPS 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		AppName:            getEnv("APP_NAME", "News Near Me API"),
		AppVersion:         getEnv("APP_VERSION", "1.0.0"),
		Debug:              getBool("DEBUG", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8000"),
		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-flash-latest"),
		LLMURL:             getEnv("LLM_URL", "http://localhost:11434/api/generate"),
		LLMModel:           getEnv("LLM_MODEL", "llama3.1"),
		LLMTimeout:         getDuration("LLM_TIMEOUT", "60s"),
		GeolocationURL:     strings.TrimRight(getEnv("GEOLOCATION_API_URL", "http://ip-api.com/json"), "/"),
		GeolocationTimeout: getDuration("GEOLOCATION_TIMEOUT", "10s"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		GeoCacheTTL:        getDuration("GEO_CACHE_TTL", "1h"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		CORSOrigins:        splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		TrustedProxies:     splitAndTrim(os.Getenv("TRUSTED_PROXIES")),
		RateLimitRPS:       getFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 5),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case ProviderOllama:
		if c.LLMURL == "" {
			return fmt.Errorf("LLM_URL is required for the ollama provider")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q", ProviderGemini, ProviderOllama)
	}
	if c.GeolocationURL == "" {
		return fmt.Errorf("GEOLOCATION_API_URL cannot be empty")
	}
	if c.GeolocationTimeout <= 0 {
		return fmt.Errorf("GEOLOCATION_TIMEOUT must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.GeoCacheTTL <= 0 {
		return fmt.Errorf("GEO_CACHE_TTL must be positive")
	}
	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must contain at least one origin")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS cannot be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDuration falls back to the default when the variable does not parse.
func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
