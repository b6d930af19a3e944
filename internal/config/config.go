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

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	StoreDir    string
	DatabaseURL string

	SessionTTL time.Duration

	LegacyPawnDoubleStep bool
	PawnCaptures         bool

	MessagesDir      string
	RenderSquareSize int
}

// Load reads the configuration from the environment. Unset keys keep their
// defaults; malformed values are reported rather than ignored. ENV_FILE, or
// ./.env when present, is loaded first without overriding set variables.
func Load() (*AppConfig, error) {
	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}
	return load(os.Getenv)
}

func loadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func load(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:         ":8080",
		SessionTTL:       time.Hour,
		RenderSquareSize: 64,
	}
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	if v := get("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = get("REDIS_URL")
	cfg.StoreDir = get("STORE_DIR")
	cfg.DatabaseURL = get("DATABASE_URL")
	cfg.MessagesDir = get("MESSAGES_DIR")

	if v := get("SESSION_TTL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("SESSION_TTL must be a positive number of seconds, got %q", v)
		}
		cfg.SessionTTL = time.Duration(n) * time.Second
	}
	if v := get("LEGACY_PAWN_DOUBLE_STEP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("LEGACY_PAWN_DOUBLE_STEP: %w", err)
		}
		cfg.LegacyPawnDoubleStep = b
	}
	if v := get("PAWN_CAPTURES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("PAWN_CAPTURES: %w", err)
		}
		cfg.PawnCaptures = b
	}
	if v := get("RENDER_SQUARE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 || n > 256 {
			return nil, fmt.Errorf("RENDER_SQUARE_SIZE must be between 16 and 256, got %q", v)
		}
		cfg.RenderSquareSize = n
	}

	if cfg.RedisURL != "" && !strings.HasPrefix(cfg.RedisURL, "redis://") && !strings.HasPrefix(cfg.RedisURL, "rediss://") {
		return nil, errors.New("REDIS_URL must use the redis:// or rediss:// scheme")
	}
	return cfg, nil
}
