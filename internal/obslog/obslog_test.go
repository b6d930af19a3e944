package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitWritesJSONFile(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	path := filepath.Join(t.TempDir(), "logs", "board.log")
	logger, err := Init(Options{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Debug("session_start", zap.String("session_id", "s1"))
	_ = logger.Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"session_id":"s1"`) || !strings.Contains(string(raw), "session_start") {
		t.Fatalf("unexpected log output: %s", raw)
	}
}

func TestInitWithoutSinksIsNop(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	if _, err := Init(Options{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if L().Core().Enabled(zap.ErrorLevel) {
		t.Fatalf("expected nop logger")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING") != zap.WarnLevel || parseLevel("bogus") != zap.InfoLevel {
		t.Fatalf("parseLevel mismatch")
	}
}
