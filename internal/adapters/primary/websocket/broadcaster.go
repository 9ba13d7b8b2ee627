package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
	"github.com/lorrc/donor-display-backend/internal/core/ports"
	"github.com/lorrc/donor-display-backend/internal/infrastructure/metrics"
)

// Broadcaster fans events out to every viewer in a Registry.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger
}

// Ensure Broadcaster implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster over the given registry
func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger.With("component", "broadcaster"),
	}
}

// Broadcast encodes the event once and queues the same bytes on every
// viewer registered at the time of the call. A viewer that cannot accept the
// message is unregistered and closed; the remaining viewers are still served.
func (b *Broadcaster) Broadcast(ctx context.Context, event domain.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to encode event",
			"event_type", event.Type,
			"error", err,
		)
		return
	}

	metrics.BroadcastsTotal.WithLabelValues(string(event.Type)).Inc()

	viewers := b.registry.Snapshot()
	if len(viewers) == 0 {
		b.logger.DebugContext(ctx, "no viewers connected", "event_type", event.Type)
		return
	}

	b.logger.DebugContext(ctx, "broadcasting event",
		"event_type", event.Type,
		"viewer_count", len(viewers),
	)

	for _, conn := range viewers {
		if err := conn.Send(msg); err != nil {
			b.drop(ctx, conn, err)
		}
	}
}

// drop evicts a viewer whose send failed
func (b *Broadcaster) drop(ctx context.Context, conn Conn, err error) {
	deliveryErr := &apperrors.DeliveryError{ViewerID: conn.ID(), Err: err}
	metrics.DeliveryFailuresTotal.WithLabelValues(failureReason(err)).Inc()

	b.logger.WarnContext(ctx, "dropping viewer after failed delivery", "error", deliveryErr)

	if b.registry.Unregister(conn) {
		if closeErr := conn.Close(); closeErr != nil {
			b.logger.DebugContext(ctx, "failed to close viewer",
				"viewer_id", conn.ID(),
				"error", closeErr,
			)
		}
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrSendBufferFull):
		return "buffer_full"
	case errors.Is(err, apperrors.ErrViewerClosed):
		return "closed"
	default:
		return "other"
	}
}
