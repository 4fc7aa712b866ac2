package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icahtcli/internal/config"
)

func TestCreateLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := createLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	ctx := WithTraceID(context.Background(), "abc123")
	logger.InfoContext(ctx, "batch started", slog.Int("patients", 7))

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "batch started", record["msg"])
	assert.Equal(t, "abc123", record["trace_id"])
	assert.Equal(t, float64(7), record["patients"])
}

func TestCreateLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := createLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input), tt.input)
	}
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	ctx := WithTraceID(context.Background(), "t-1")
	assert.Equal(t, "t-1", GetTraceID(ctx))
}
