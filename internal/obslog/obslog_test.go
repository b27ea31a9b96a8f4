package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestJSONConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: zapcore.InfoLevel, Format: "json", Console: true, Stdout: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer()

	logger.Debug("hidden")
	logger.Info("sparring_started", zap.String("session_id", "s1"))
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "sparring_started" || entry["session_id"] != "s1" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	logger, closer, err := New(Options{Level: zapcore.DebugLevel, Format: "legacy", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("engine_fallback")
	_ = logger.Sync()
	if err := closer(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), " | WARN | ") || !strings.Contains(string(raw), "engine_fallback") {
		t.Fatalf("unexpected legacy line %q", raw)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_FORMAT", "yaml")
	t.Setenv("LOG_TO_FILE", "")
	opts := OptionsFromEnv()
	if opts.Level != zapcore.WarnLevel || opts.Format != "legacy" || opts.File != "" || !opts.Console {
		t.Fatalf("unexpected options %+v", opts)
	}

	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "/tmp/x.log")
	if opts := OptionsFromEnv(); opts.File != "/tmp/x.log" {
		t.Fatalf("expected file sink, got %+v", opts)
	}
}

func TestInitReplacesGlobal(t *testing.T) {
	var buf bytes.Buffer
	closer, err := Init(Options{Level: zapcore.InfoLevel, Format: "console", Console: true, Stdout: &buf})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		_ = closer()
		globalMu.Lock()
		globalLogger = zap.NewNop()
		globalMu.Unlock()
	})
	L().Info("hello")
	_ = L().Sync()
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("global logger not replaced: %q", buf.String())
	}
}
