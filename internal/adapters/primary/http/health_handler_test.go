package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubViewers struct{ count, limit int }

func (v stubViewers) Count() int { return v.count }
func (v stubViewers) Limit() int { return v.limit }

type stubIngestion bool

func (s stubIngestion) InProgress() bool { return bool(s) }

func serveHealth(t *testing.T, h *HealthHandler, path string) (int, HealthResponse) {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(stdhttp.MethodGet, path, nil))

	var body HealthResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	return recorder.Code, body
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
	}{
		{name: "liveness ignores database", path: "/health/live", pingErr: errors.New("down"), wantStatus: stdhttp.StatusOK},
		{name: "ready", path: "/health/ready", wantStatus: stdhttp.StatusOK},
		{name: "not ready", path: "/health/ready", pingErr: errors.New("down"), wantStatus: stdhttp.StatusServiceUnavailable},
		{name: "detailed unhealthy", path: "/health", pingErr: errors.New("down"), wantStatus: stdhttp.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(stubPinger{err: tt.pingErr}, stubViewers{count: 3}, stubIngestion(false), "test")

			code, _ := serveHealth(t, h, tt.path)

			assert.Equal(t, tt.wantStatus, code)
		})
	}
}

func TestHealthHandler_ReadinessReportsIngestionAndViewers(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, stubViewers{count: 2, limit: 2}, stubIngestion(true), "test")

	code, body := serveHealth(t, h, "/health/ready")

	require.Equal(t, stdhttp.StatusOK, code, "a running upload and a full registry keep the service ready")
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "running", body.Checks["ingestion"].Status)
	assert.Equal(t, "full", body.Checks["viewers"].Status)
	assert.Equal(t, "2 of 2 displays connected", body.Checks["viewers"].Message)
	assert.Nil(t, body.Viewers)
}

func TestHealthHandler_DetailedReportsViewerCount(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, stubViewers{count: 3}, stubIngestion(false), "1.2.3")

	code, body := serveHealth(t, h, "/health")

	require.Equal(t, stdhttp.StatusOK, code)
	require.NotNil(t, body.Viewers)
	assert.Equal(t, 3, *body.Viewers)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "idle", body.Checks["ingestion"].Status)
	assert.Equal(t, "healthy", body.Checks["viewers"].Status)
	assert.Positive(t, body.Goroutines)
}

func TestHealthHandler_MissingDependencies(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil, "test")

	code, body := serveHealth(t, h, "/health/ready")

	assert.Equal(t, stdhttp.StatusServiceUnavailable, code)
	assert.Equal(t, "unknown", body.Checks["viewers"].Status)
	assert.Equal(t, "unknown", body.Checks["ingestion"].Status)
}
