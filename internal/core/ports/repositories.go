package ports

import (
	"context"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
)

// DonorRepository is the record store for donors. Implementations return
// apperrors.ErrDonorNotFound for missing ids.
type DonorRepository interface {
	Create(ctx context.Context, donor *domain.Donor) (*domain.Donor, error)
	GetByID(ctx context.Context, id int64) (*domain.Donor, error)
	Update(ctx context.Context, donor *domain.Donor) (*domain.Donor, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*domain.Donor, error)
}
