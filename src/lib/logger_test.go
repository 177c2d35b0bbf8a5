package lib

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, output string) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "Log entry should be valid JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{FATAL, "FATAL"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	level, ok := ParseLogLevel("WARN")
	assert.True(t, ok)
	assert.Equal(t, WARN, level)

	level, ok = ParseLogLevel("chatty")
	assert.False(t, ok)
	assert.Equal(t, INFO, level)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("test-component")

	assert.Equal(t, "test-component", logger.component)
	assert.NotNil(t, logger.writer)
}

func TestLogger_SetLevel(t *testing.T) {
	logger := NewLogger("test")
	logger.SetLevel(DEBUG)
	assert.Equal(t, DEBUG, logger.level)

	logger.SetLevel(ERROR)
	assert.Equal(t, ERROR, logger.level)
}

func TestLogger_LogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test-component")
	logger.SetLevel(DEBUG)
	logger.SetOutput(&buf)

	logger.Debug("debug message", map[string]interface{}{"key": "value"})
	logger.Info("info message", map[string]interface{}{"key": "value"})
	logger.Warn("warn message", map[string]interface{}{"key": "value"})
	logger.Error("error message", map[string]interface{}{"key": "value"})

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 4)

	levels := []string{"debug", "info", "warn", "error"}
	for i, entry := range entries {
		assert.Equal(t, "test-component", entry["component"])
		assert.Equal(t, levels[i], entry["level"])
		assert.Equal(t, "value", entry["key"])
		assert.NotEmpty(t, entry["time"])
		assert.NotEmpty(t, entry["message"])
	}
}

func TestLogger_LogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test")
	logger.SetLevel(WARN)
	logger.SetOutput(&buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestLogger_ContextHandling(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test")
	logger.SetLevel(INFO)
	logger.SetOutput(&buf)

	logger.Info("message", map[string]interface{}{"key1": "value1"})
	logger.Info("message",
		map[string]interface{}{"key1": "value1"},
		map[string]interface{}{"key2": "value2"},
	)
	logger.Info("message")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 3)

	assert.Equal(t, "value1", entries[0]["key1"])

	assert.Equal(t, "value1", entries[1]["key1"])
	assert.Equal(t, "value2", entries[1]["key2"])

	assert.NotContains(t, entries[2], "key1")
	assert.NotContains(t, entries[2], "key2")
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test")
	logger.SetLevel(INFO)
	logger.SetOutput(&buf)

	contextLogger := logger.WithContext(map[string]interface{}{
		"user":   "parent",
		"action": "test",
	})

	contextLogger(INFO, "contextual message")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 1)
	assert.Equal(t, "parent", entries[0]["user"])
	assert.Equal(t, "test", entries[0]["action"])
	assert.Equal(t, "contextual message", entries[0]["message"])
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalOutput()
	defer SetGlobalOutput(original)
	defer SetGlobalLevel(INFO)

	SetGlobalLevel(DEBUG)
	var buf bytes.Buffer
	SetGlobalOutput(&buf)

	Debug("global debug message")
	Info("global info message")
	Warn("global warn message")
	Error("global error message")

	output := buf.String()
	assert.Contains(t, output, "global debug message")
	assert.Contains(t, output, "global info message")
	assert.Contains(t, output, "global warn message")
	assert.Contains(t, output, "global error message")

	for _, entry := range decodeLines(t, output) {
		assert.Equal(t, "screentime-bar", entry["component"])
	}
}

func TestSetGlobalOutput_AppliesToNewLoggers(t *testing.T) {
	original := GetGlobalOutput()
	defer SetGlobalOutput(original)

	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	assert.Same(t, &buf, GetGlobalOutput())

	NewLogger("late").Info("routed")
	assert.Contains(t, buf.String(), "routed")
}

func TestLogger_NilOutputDiscards(t *testing.T) {
	logger := NewLogger("test")
	logger.SetOutput(nil)

	assert.NotPanics(t, func() {
		logger.Info("nowhere")
	})
}
