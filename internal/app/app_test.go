package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hourglass/internal/config"
)

func TestNewLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output %q", out)
	}
	if parseLevel("DEBUG") != slog.LevelDebug || parseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("parseLevel mismatch")
	}
}

func TestOpenWorkspace(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Config.Server.BasePath != "/v1" {
		t.Fatalf("expected default config, got %+v", ws.Config.Server)
	}
	if _, err := os.Stat(filepath.Join(dir, ".hourglass", "hourglass.db")); err != nil {
		t.Fatalf("database not created: %v", err)
	}
	rows, err := ws.Engine.ListProjects(context.Background(), false)
	if err != nil || len(rows) != 0 {
		t.Fatalf("list projects on fresh workspace: %v %v", rows, err)
	}
}

func TestEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := LoadEnv(dir); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
	if err := SetEnvValue(dir, "HOURGLASS_TEST_A", "one"); err != nil {
		t.Fatal(err)
	}
	if err := SetEnvValue(dir, "HOURGLASS_TEST_B", "two"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOURGLASS_TEST_B", "preset")
	os.Unsetenv("HOURGLASS_TEST_A")
	if err := LoadEnv(dir); err != nil {
		t.Fatal(err)
	}
	if os.Getenv("HOURGLASS_TEST_A") != "one" {
		t.Fatalf("expected value from .env")
	}
	if os.Getenv("HOURGLASS_TEST_B") != "preset" {
		t.Fatalf(".env must not override the environment")
	}
	os.Unsetenv("HOURGLASS_TEST_A")
}
