package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
	"github.com/lorrc/donor-display-backend/internal/core/ports"
)

// DonorService implements the single-record donor use cases
type DonorService struct {
	donorRepo   ports.DonorRepository
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

var _ ports.DonorService = (*DonorService)(nil)

// NewDonorService creates a new donor service
func NewDonorService(
	donorRepo ports.DonorRepository,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) ports.DonorService {
	return &DonorService{
		donorRepo:   donorRepo,
		broadcaster: broadcaster,
		logger:      logger.With("component", "donor_service"),
	}
}

// CreateDonor persists a donor and then announces it to every viewer.
// The grade is stored and broadcast exactly as supplied.
func (s *DonorService) CreateDonor(ctx context.Context, params domain.DonorParams) (*domain.Donor, error) {
	// 1. Validate
	donor, err := domain.NewDonor(params)
	if err != nil {
		return nil, err
	}

	// 2. Persist; nothing is broadcast unless the store acknowledged the write
	created, err := s.donorRepo.Create(ctx, donor)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "create", Err: err}
	}

	// 3. Broadcast
	s.broadcaster.Broadcast(ctx, domain.NewDonorEvent(created))

	if !domain.Grade(created.Grade).IsKnown() {
		s.logger.WarnContext(ctx, "donor grade has no display style",
			"donor_id", created.ID,
			"grade", created.Grade,
		)
	}

	s.logger.InfoContext(ctx, "donor created",
		"donor_id", created.ID,
		"grade", created.Grade,
	)

	return created, nil
}

// GetDonor retrieves a single donor
func (s *DonorService) GetDonor(ctx context.Context, id int64) (*domain.Donor, error) {
	return s.donorRepo.GetByID(ctx, id)
}

// ListDonors returns every donor in creation order
func (s *DonorService) ListDonors(ctx context.Context) ([]*domain.Donor, error) {
	return s.donorRepo.List(ctx)
}

// UpdateDonor overwrites a donor. Updates are not broadcast.
func (s *DonorService) UpdateDonor(ctx context.Context, id int64, params domain.DonorParams) (*domain.Donor, error) {
	donor, err := s.donorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := donor.Apply(params); err != nil {
		return nil, err
	}

	updated, err := s.donorRepo.Update(ctx, donor)
	if err != nil {
		if errors.Is(err, apperrors.ErrDonorNotFound) {
			return nil, err
		}
		return nil, &apperrors.PersistenceError{Op: "update", Err: err}
	}

	return updated, nil
}

// DeleteDonor removes a donor. Deletes are not broadcast.
func (s *DonorService) DeleteDonor(ctx context.Context, id int64) error {
	if err := s.donorRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrDonorNotFound) {
			return err
		}
		return &apperrors.PersistenceError{Op: "delete", Err: err}
	}

	s.logger.InfoContext(ctx, "donor deleted", "donor_id", id)
	return nil
}
