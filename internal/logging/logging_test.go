package logging

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("test-source")

	if cfg.Level != slog.LevelInfo {
		t.Errorf("expected level INFO, got %v", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("expected format text, got %s", cfg.Format)
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected output stderr")
	}
	if cfg.Source != "test-source" {
		t.Errorf("expected source test-source, got %s", cfg.Source)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		levelEnv      string
		formatEnv     string
		expectedLevel slog.Level
		expectedFmt   string
	}{
		{name: "defaults", expectedLevel: slog.LevelInfo, expectedFmt: "text"},
		{name: "debug level", levelEnv: "debug", expectedLevel: slog.LevelDebug, expectedFmt: "text"},
		{name: "warn level", levelEnv: "warn", expectedLevel: slog.LevelWarn, expectedFmt: "text"},
		{name: "warning level alias", levelEnv: "warning", expectedLevel: slog.LevelWarn, expectedFmt: "text"},
		{name: "error level", levelEnv: "ERROR", expectedLevel: slog.LevelError, expectedFmt: "text"},
		{name: "json format", formatEnv: "json", expectedLevel: slog.LevelInfo, expectedFmt: "json"},
		{name: "debug + json", levelEnv: "debug", formatEnv: "json", expectedLevel: slog.LevelDebug, expectedFmt: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CODEBASE_LOG_LEVEL", tt.levelEnv)
			t.Setenv("CODEBASE_LOG_FORMAT", tt.formatEnv)

			cfg := LoadConfigFromEnv("test")
			if cfg.Level != tt.expectedLevel {
				t.Errorf("level: expected %v, got %v", tt.expectedLevel, cfg.Level)
			}
			if cfg.Format != tt.expectedFmt {
				t.Errorf("format: expected %s, got %s", tt.expectedFmt, cfg.Format)
			}
		})
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "text", Output: &buf, Source: "test-component"})
	logger.Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("output should contain message: %s", output)
	}
	if !strings.Contains(output, "component=test-component") {
		t.Errorf("output should contain component: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("output should contain key=value: %s", output)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Source: "json-test"})
	logger.Info("json test")

	output := buf.String()
	if !strings.Contains(output, `"msg":"json test"`) {
		t.Errorf("JSON output should contain msg field: %s", output)
	}
	if !strings.Contains(output, `"component":"json-test"`) {
		t.Errorf("JSON output should contain component field: %s", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "text", Output: &buf, Source: "filter-test"})

	logger.Debug("debug message")
	logger.Info("info message")
	if strings.Contains(buf.String(), "debug message") || strings.Contains(buf.String(), "info message") {
		t.Error("debug/info messages should be filtered at warn level")
	}

	logger.Warn("warn message")
	logger.Error("error message")
	if !strings.Contains(buf.String(), "warn message") || !strings.Contains(buf.String(), "error message") {
		t.Error("warn/error messages should appear")
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info("this goes nowhere")
	logger.Error("neither does this")
	logger.With("key", "value").Debug("or this")
}

func TestDefault(t *testing.T) {
	t.Setenv("CODEBASE_LOG_LEVEL", "")
	t.Setenv("CODEBASE_LOG_FORMAT", "")

	if logger := Default("default-test"); logger == nil {
		t.Error("Default should return a logger")
	}
}
