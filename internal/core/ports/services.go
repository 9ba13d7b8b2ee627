package ports

import (
	"context"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
)

// DonorService defines the single-record operations on donors.
type DonorService interface {
	CreateDonor(ctx context.Context, params domain.DonorParams) (*domain.Donor, error)
	GetDonor(ctx context.Context, id int64) (*domain.Donor, error)
	ListDonors(ctx context.Context) ([]*domain.Donor, error)
	UpdateDonor(ctx context.Context, id int64, params domain.DonorParams) (*domain.Donor, error)
	DeleteDonor(ctx context.Context, id int64) error
}

// IngestionService processes bulk uploads with presentation pacing.
type IngestionService interface {
	// IngestSequence persists and broadcasts rows strictly in order and
	// returns how many rows completed, also when it returns an error.
	IngestSequence(ctx context.Context, rows []domain.DonorRow) (int, error)
	// InProgress reports whether a run is currently active.
	InProgress() bool
}

// EventBroadcaster delivers real-time events to every connected viewer.
// Delivery is best effort; failures never reach the caller.
type EventBroadcaster interface {
	Broadcast(ctx context.Context, event domain.Event)
}
