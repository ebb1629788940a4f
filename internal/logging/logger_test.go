// Package logging includes tests for the zap logger helpers.
package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true, "")
	if err != nil {
		t.Fatalf("New(true, \"\") error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false, "")
	if err != nil {
		t.Fatalf("New(false, \"\") error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

// TestNewLoggerWithFile checks the log is duplicated to the given file.
func TestNewLoggerWithFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(false, path)
	if err != nil {
		t.Fatalf("New(false, %q) error = %v", path, err)
	}
	logger.Info("archived one episode")
	logger.Sync() //nolint:errcheck // best-effort flush

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "archived one episode") {
		t.Fatalf("expected log file to contain the message, got %q", data)
	}
}
