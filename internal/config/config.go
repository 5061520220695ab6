// Package config loads the toolchain settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the CLI and the interactive session.
type Config struct {
	LogLevel    string `yaml:"log_level"`
	Color       bool   `yaml:"color"`
	MemoryPages int    `yaml:"memory_pages"`
	MaxSteps    int    `yaml:"max_steps"`
	HistoryFile string `yaml:"history_file"`
	Foreign     bool   `yaml:"foreign"`
}

// ValidationError lists every invalid setting of a file.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

var levels = []string{"debug", "info", "warn", "error"}

// Default returns the built-in settings
func Default() *Config {
	history := ".sui_history"
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, history)
	}
	return &Config{
		LogLevel:    "warn",
		Color:       true,
		MemoryPages: 1,
		MaxSteps:    0,
		HistoryFile: history,
		Foreign:     true,
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value; unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs ValidationError

	level := strings.ToLower(c.LogLevel)
	valid := false
	for _, l := range levels {
		if level == l {
			valid = true
		}
	}
	if !valid {
		errs.Issues = append(errs.Issues, fmt.Sprintf("log_level must be one of %s, got %q", strings.Join(levels, ", "), c.LogLevel))
	}
	if c.MemoryPages < 1 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("memory_pages must be at least 1, got %d", c.MemoryPages))
	}
	if c.MaxSteps < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("max_steps must not be negative, got %d", c.MaxSteps))
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}
