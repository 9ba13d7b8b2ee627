package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/donor-display-backend/internal/infrastructure/logging"
)

func TestNewLogger_AddsServiceAndContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
		ServiceName: "donor-display",
		Environment: "test",
	})

	ctx := logging.WithRequestID(context.Background(), "req-1")
	ctx = logging.WithBatchID(ctx, "batch-1")
	logger.InfoContext(ctx, "donor ingested", "row", 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "donor ingested", entry["msg"])
	assert.Equal(t, "donor-display", entry["service"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "batch-1", entry["batch_id"])
	assert.EqualValues(t, 1, entry["row"])
}

func TestNewLogger_ContextAttrsSurviveWith(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Format: "json", Output: &buf}).
		With("component", "ingestion_service")

	logger.InfoContext(logging.WithBatchID(context.Background(), "batch-9"), "paced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ingestion_service", entry["component"])
	assert.Equal(t, "batch-9", entry["batch_id"])
	assert.NotContains(t, entry, "request_id")
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Level: "warn", Format: "text", Output: &buf})

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("loud"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel(""))
}

func TestLogPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Format: "json", Output: &buf})

	ctx := logging.WithRequestID(context.Background(), "req-7")
	logging.LogPanic(ctx, logger, "boom", "path", "/api/v1/donors")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "panic recovered", entry["msg"])
	assert.Equal(t, "boom", entry["panic"])
	assert.Equal(t, "/api/v1/donors", entry["path"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Contains(t, entry["stack_trace"], "goroutine")
	assert.Equal(t, "", logging.GetRequestID(context.Background()))
}
