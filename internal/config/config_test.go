package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.SessionTTL != time.Hour || cfg.RenderSquareSize != 64 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LegacyPawnDoubleStep || cfg.PawnCaptures || cfg.RedisURL != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"HTTP_ADDR":               "127.0.0.1:9000",
		"REDIS_URL":               " redis://localhost:6379/2 ",
		"SESSION_TTL":             "90",
		"LEGACY_PAWN_DOUBLE_STEP": "true",
		"PAWN_CAPTURES":           "1",
		"RENDER_SQUARE_SIZE":      "48",
		"STORE_DIR":               "/var/lib/board",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" || cfg.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("addr/redis: %+v", cfg)
	}
	if cfg.StoreDir != "/var/lib/board" {
		t.Fatalf("store dir: %q", cfg.StoreDir)
	}
	if cfg.SessionTTL != 90*time.Second || !cfg.LegacyPawnDoubleStep || !cfg.PawnCaptures || cfg.RenderSquareSize != 48 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	bad := []map[string]string{
		{"SESSION_TTL": "soon"},
		{"SESSION_TTL": "-5"},
		{"PAWN_CAPTURES": "maybe"},
		{"RENDER_SQUARE_SIZE": "4"},
		{"REDIS_URL": "http://localhost"},
	}
	for _, env := range bad {
		if _, err := load(envOf(env)); err == nil {
			t.Fatalf("expected error for %v", env)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "CHESSBOARD_DOTENV_PROBE"
	t.Setenv(key, "")
	os.Unsetenv(key)

	path := filepath.Join(t.TempDir(), "board.env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Fatalf("%s = %q", key, got)
	}

	t.Setenv(key, "from-env")
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv(key); got != "from-env" {
		t.Fatalf("env var overridden: %q", got)
	}

	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
