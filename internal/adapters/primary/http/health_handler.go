package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 3 * time.Second

// Pinger reports whether the record store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ViewerStats describes the display registry
type ViewerStats interface {
	Count() int
	Limit() int
}

// IngestionStatus reports whether a bulk run is active
type IngestionStatus interface {
	InProgress() bool
}

// HealthHandler serves liveness, readiness and a detailed status report
type HealthHandler struct {
	db        Pinger
	viewers   ViewerStats
	ingestion IngestionStatus
	version   string
	started   time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, viewers ViewerStats, ingestion IngestionStatus, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		viewers:   viewers,
		ingestion: ingestion,
		version:   version,
		started:   time.Now(),
	}
}

// Check is the result of one health check
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthResponse is the body of every health endpoint
type HealthResponse struct {
	Status     string           `json:"status"`
	Timestamp  string           `json:"timestamp"`
	Version    string           `json:"version,omitempty"`
	Uptime     string           `json:"uptime,omitempty"`
	Checks     map[string]Check `json:"checks,omitempty"`
	Viewers    *int             `json:"viewers,omitempty"`
	Goroutines int              `json:"goroutines,omitempty"`
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// HandleLiveness answers as long as the process serves HTTP
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness fails only when the record store is unreachable. A running
// bulk upload or a full display registry is reported without failing.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := h.report(r.Context())
	writeHealth(w, resp)
}

// HandleHealth adds the viewer count and goroutine count to the readiness report
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := h.report(r.Context())
	if h.viewers != nil {
		count := h.viewers.Count()
		resp.Viewers = &count
	}
	resp.Goroutines = runtime.NumGoroutine()
	writeHealth(w, resp)
}

func writeHealth(w http.ResponseWriter, resp HealthResponse) {
	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, resp)
}

func (h *HealthHandler) report(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	db := h.checkDatabase(ctx)
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Checks: map[string]Check{
			"database":  db,
			"viewers":   h.checkViewers(),
			"ingestion": h.checkIngestion(),
		},
	}
	if db.Status != "healthy" {
		resp.Status = "unhealthy"
	}
	return resp
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.db == nil {
		return Check{Status: "unhealthy", Message: "database not configured"}
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).String()
	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: latency}
	}
	return Check{Status: "healthy", Latency: latency}
}

func (h *HealthHandler) checkViewers() Check {
	if h.viewers == nil {
		return Check{Status: "unknown"}
	}

	count, limit := h.viewers.Count(), h.viewers.Limit()
	if limit > 0 && count >= limit {
		return Check{Status: "full", Message: fmt.Sprintf("%d of %d displays connected", count, limit)}
	}
	return Check{Status: "healthy", Message: fmt.Sprintf("%d displays connected", count)}
}

func (h *HealthHandler) checkIngestion() Check {
	switch {
	case h.ingestion == nil:
		return Check{Status: "unknown"}
	case h.ingestion.InProgress():
		return Check{Status: "running", Message: "bulk upload in progress"}
	default:
		return Check{Status: "idle"}
	}
}
