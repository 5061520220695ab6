package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sui/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sui.yml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LogLevel != "warn" || !cfg.Color || cfg.MemoryPages != 1 || cfg.MaxSteps != 0 || !cfg.Foreign {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.HistoryFile, ".sui_history") {
		t.Errorf("unexpected history file %q", cfg.HistoryFile)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: debug\nmax_steps: 5000\nforeign: false\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.MaxSteps != 5000 || cfg.Foreign {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.MemoryPages != 1 || !cfg.Color {
		t.Errorf("missing keys should keep defaults: %+v", cfg)
	}
}

func TestEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}

	if _, err := config.Load(writeConfig(t, "colour: true\n")); err == nil {
		t.Errorf("expected an error for an unknown key")
	}

	_, err := config.Load(writeConfig(t, "log_level: loud\nmemory_pages: 0\nmax_steps: -1\n"))
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if len(verr.Issues) != 3 {
		t.Errorf("expected 3 issues, got %v", verr.Issues)
	}
}
