package websocket

import (
	"log/slog"
	"sync"

	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
	"github.com/lorrc/donor-display-backend/internal/infrastructure/metrics"
)

// Conn is a viewer connection as seen by the registry and the broadcaster.
type Conn interface {
	ID() string
	// Send queues an encoded message without blocking on the network.
	Send(msg []byte) error
	Close() error
}

// Registry maintains the set of connected viewers.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}

	// maxConns limits membership when greater than zero
	maxConns int

	logger *slog.Logger
}

// NewRegistry creates an empty viewer registry. A maxConns of zero means no limit.
func NewRegistry(maxConns int, logger *slog.Logger) *Registry {
	return &Registry{
		conns:    make(map[Conn]struct{}),
		maxConns: maxConns,
		logger:   logger.With("component", "viewer_registry"),
	}
}

// Register adds a connection. Registering an existing member is a no-op.
func (r *Registry) Register(conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn]; exists {
		return nil
	}
	if r.maxConns > 0 && len(r.conns) >= r.maxConns {
		return apperrors.ErrTooManyViewers
	}

	r.conns[conn] = struct{}{}
	metrics.ViewersConnected.Set(float64(len(r.conns)))

	r.logger.Info("viewer registered",
		"viewer_id", conn.ID(),
		"total_viewers", len(r.conns),
	)
	return nil
}

// Unregister removes a connection and reports whether it was a member.
func (r *Registry) Unregister(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn]; !exists {
		return false
	}

	delete(r.conns, conn)
	metrics.ViewersConnected.Set(float64(len(r.conns)))

	r.logger.Info("viewer unregistered",
		"viewer_id", conn.ID(),
		"total_viewers", len(r.conns),
	)
	return true
}

// Snapshot returns a copy of the current membership.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Limit returns the configured viewer limit; zero means unlimited
func (r *Registry) Limit() int {
	return r.maxConns
}

// Count returns the number of registered viewers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
