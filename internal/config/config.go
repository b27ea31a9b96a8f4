package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL        string
	DatabaseURL     string
	DatabaseMigrate bool

	StockfishPath     string
	StockfishAPIURL   string
	StockfishAPIKey   string
	StockfishAPIHost  string
	StockfishPoolSize int

	ChessDefaultPreset string
	ChessSessionTTL    time.Duration
	ChessHistoryLimit  int
	ChessTuningFile    string
	ChessPolyglotBook  string
	ChessMessagesDir   string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:           ":8080",
		ChessDefaultPreset: "level15",
		ChessSessionTTL:    24 * time.Hour,
		ChessHistoryLimit:  10,
		StockfishPoolSize:  2,
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	if v := env("DATABASE_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("DATABASE_MIGRATE: %w", err)
		}
		cfg.DatabaseMigrate = b
	}

	// Engine
	cfg.StockfishPath = env("STOCKFISH_PATH")
	cfg.StockfishAPIURL = env("STOCKFISH_API_URL")
	cfg.StockfishAPIKey = env("STOCKFISH_API_KEY")
	cfg.StockfishAPIHost = env("STOCKFISH_API_HOST")
	if v := env("STOCKFISH_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("STOCKFISH_POOL_SIZE must be a positive integer: %q", v)
		}
		cfg.StockfishPoolSize = n
	}

	// Chess specific
	if v := env("CHESS_DEFAULT_PRESET"); v != "" {
		cfg.ChessDefaultPreset = v
	}
	if v := env("CHESS_SESSION_TTL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CHESS_SESSION_TTL: %w", err)
		}
		cfg.ChessSessionTTL = d
	}
	if v := env("CHESS_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChessHistoryLimit = n
		}
	}
	cfg.ChessTuningFile = env("CHESS_TUNING_FILE")
	cfg.ChessPolyglotBook = env("CHESS_POLYGLOT_BOOK_PATH")
	cfg.ChessMessagesDir = env("CHESS_MESSAGES_DIR")

	if cfg.StockfishAPIKey != "" && cfg.StockfishAPIURL == "" {
		return nil, errors.New("STOCKFISH_API_KEY requires STOCKFISH_API_URL")
	}

	return cfg, nil
}

// SearchConfigured reports whether any search engine backend is set.
func (c *AppConfig) SearchConfigured() bool {
	return c.StockfishPath != "" || c.StockfishAPIURL != ""
}

// parseDuration accepts plain seconds ("3600") or a Go duration ("1h").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be positive: %q", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive: %q", v)
	}
	return d, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
