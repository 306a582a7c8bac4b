package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	DBMaxConns       int32
	DBMinConns       int32
	DBConnLifetime   time.Duration
	DBConnIdleTime   time.Duration
	EncryptionKey    string
	StoragePath      string
	PublicBaseURL    string
	CORSOrigins      []string
	PollInterval     time.Duration
	MaxPollAttempts  int
	OpenAIBaseURL    string
	RunwayBaseURL    string
	KlingBaseURL     string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "3001"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns:       int32(getEnvInt("DB_MIN_CONNS", 1)),
		DBConnLifetime:   time.Minute * time.Duration(getEnvInt("DB_CONN_LIFETIME_MINUTES", 60)),
		DBConnIdleTime:   time.Minute * time.Duration(getEnvInt("DB_CONN_IDLE_MINUTES", 30)),
		EncryptionKey:    os.Getenv("ENCRYPTION_KEY"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage/videos"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:3001"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		PollInterval:     time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		MaxPollAttempts:  getEnvInt("MAX_POLL_ATTEMPTS", 60),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		RunwayBaseURL:    getEnv("RUNWAY_BASE_URL", "https://api.runwayml.com/v1"),
		KlingBaseURL:     getEnv("KLING_BASE_URL", "https://api.klingai.com/v1"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
