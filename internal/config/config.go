package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Server storage
	DataDir      string
	Tokens       []string // accepted tokens; empty accepts any
	MaxConns     int
	MaxBodyBytes int64

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Remote store client
	RemoteURL     string
	Token         string
	RemoteTimeout time.Duration
	RemoteRPS     float64
	RemoteRetries int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DataDir:      envOr("DOTDOC_DATA_DIR", "./data"),
		Tokens:       envList("DOTDOC_TOKENS"),
		MaxConns:     envInt("MAX_CONNS", 256),
		MaxBodyBytes: envInt64("MAX_BODY_BYTES", 10<<20),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),

		RemoteURL:     envOr("DOTDOC_REMOTE_URL", "http://localhost:8090/v1"),
		Token:         os.Getenv("DOTDOC_TOKEN"),
		RemoteTimeout: envDuration("DOTDOC_TIMEOUT", 30*time.Second),
		RemoteRPS:     envFloat("DOTDOC_RPS", 0),
		RemoteRetries: envInt("DOTDOC_RETRIES", 2),
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 256
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 30 * time.Second
	}
	if cfg.RemoteRPS < 0 {
		cfg.RemoteRPS = 0
	}
	if cfg.RemoteRetries < 0 {
		cfg.RemoteRetries = 0
	}

	return cfg
}

// Validate checks the settings the server needs.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DOTDOC_DATA_DIR is required")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ValidateRemote checks the settings the remote client needs.
func (c Config) ValidateRemote() error {
	if c.RemoteURL == "" {
		return fmt.Errorf("DOTDOC_REMOTE_URL is required")
	}
	if c.Token == "" {
		return fmt.Errorf("DOTDOC_TOKEN is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
