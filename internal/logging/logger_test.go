package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetNoOpWithoutInitialize(t *testing.T) {
	logsDir = ""
	debugMode = false
	l := Get(CategoryStore)
	l.Info("should not panic or write anywhere: %d", 1)
}

func TestInitializeProductionModeIsNoOp(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: filepath.Join(dir, "logs"), DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory in production mode, got err=%v", err)
	}
	CloseAll()
}

func TestInitializeDebugModeWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	if err := Initialize(Options{Dir: logDir, DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryStore)
	l.Info("hello %s", "world")

	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".log" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a .log file in %s, entries=%v", logDir, entries)
	}
}

func TestCategoryDisabledSuppressesOutput(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	if err := Initialize(Options{
		Dir:        logDir,
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{string(CategoryStore): false},
	}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	if IsCategoryEnabled(CategoryStore) {
		t.Fatalf("expected CategoryStore to be disabled")
	}
	l := Get(CategoryStore)
	if l.logger != nil {
		t.Fatalf("expected no-op logger for disabled category")
	}
}
