package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"DEBUG", LevelDebug},
		{" WaRn ", LevelWarn},
		{"invalid", defaultLevel},
		{"", defaultLevel},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.expected, LevelFromString(tc.input))
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("info")
	require.NoError(t, err)
	require.Equal(t, LevelInfo, level)
	require.Equal(t, "info", level.String())

	_, err = ParseLevel("loud")
	require.ErrorContains(t, err, "loud")
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()
	logger.Debug("debug message", "key", "value")
	logger.Error("error message", "key", "value")
	require.IsType(t, &NullLogger{}, logger.With("context", "value"))
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelInfo)

	logger.Debug("hidden message")
	logger.With("request_id", "abc").Info("visible message", "command", "view")

	out := buf.String()
	require.NotContains(t, out, "hidden message")
	require.Contains(t, out, "visible message")
	require.Contains(t, out, "request_id=abc")
	require.Contains(t, out, "command=view")
	require.Contains(t, out, "caller=log/log_test.go")
	require.NotContains(t, out, "\x1b[", "non-terminal writers are not colored")
}

func TestContext(t *testing.T) {
	logger := NewNullLogger()
	ctx := WithLogger(context.Background(), logger)
	require.Equal(t, Logger(logger), Ctx(ctx))

	require.IsType(t, &NullLogger{}, Ctx(context.Background()))
}

func TestFormatCaller(t *testing.T) {
	require.Equal(t, "fileops/fileops.go:12", formatCaller("/src/memfs/fileops/fileops.go", 12))
	require.Equal(t, "main.go:3", formatCaller("main.go", 3))
}
