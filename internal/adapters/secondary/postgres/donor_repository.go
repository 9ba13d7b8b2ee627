package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
	"github.com/lorrc/donor-display-backend/internal/core/ports"
)

const donorColumns = `id, name, amount, grade, message, created_at`

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DonorRepository handles persistence for donors.
type DonorRepository struct {
	db Querier
}

var _ ports.DonorRepository = (*DonorRepository)(nil)

// NewDonorRepository creates a donor repository over a pool or a transaction.
func NewDonorRepository(db Querier) ports.DonorRepository {
	return &DonorRepository{db: db}
}

// messageParam stores an empty message as NULL
func messageParam(message string) pgtype.Text {
	return pgtype.Text{String: message, Valid: message != ""}
}

func scanDonor(row pgx.Row) (*domain.Donor, error) {
	var (
		donor   domain.Donor
		message pgtype.Text
	)
	if err := row.Scan(&donor.ID, &donor.Name, &donor.Amount, &donor.Grade, &message, &donor.CreatedAt); err != nil {
		return nil, err
	}
	// NULL scans as an invalid Text with an empty String
	donor.Message = message.String
	donor.CreatedAt = donor.CreatedAt.UTC()
	return &donor, nil
}

// Create inserts a donor and returns it with its assigned id. The insert is
// committed when Create returns without error.
func (r *DonorRepository) Create(ctx context.Context, donor *domain.Donor) (*domain.Donor, error) {
	const query = `
INSERT INTO donors (name, amount, grade, message, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + donorColumns

	created, err := scanDonor(r.db.QueryRow(ctx, query,
		donor.Name,
		donor.Amount,
		donor.Grade,
		messageParam(donor.Message),
		donor.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert donor: %w", err)
	}
	return created, nil
}

// GetByID retrieves a donor by id.
func (r *DonorRepository) GetByID(ctx context.Context, id int64) (*domain.Donor, error) {
	const query = `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`

	donor, err := scanDonor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDonorNotFound
		}
		return nil, fmt.Errorf("get donor %d: %w", id, err)
	}
	return donor, nil
}

// Update overwrites the editable fields of an existing donor.
func (r *DonorRepository) Update(ctx context.Context, donor *domain.Donor) (*domain.Donor, error) {
	const query = `
UPDATE donors
SET name = $2, amount = $3, grade = $4, message = $5
WHERE id = $1
RETURNING ` + donorColumns

	updated, err := scanDonor(r.db.QueryRow(ctx, query,
		donor.ID,
		donor.Name,
		donor.Amount,
		donor.Grade,
		messageParam(donor.Message),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDonorNotFound
		}
		return nil, fmt.Errorf("update donor %d: %w", donor.ID, err)
	}
	return updated, nil
}

// Delete removes a donor.
func (r *DonorRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM donors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete donor %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDonorNotFound
	}
	return nil
}

// List returns all donors in insertion order.
func (r *DonorRepository) List(ctx context.Context) ([]*domain.Donor, error) {
	const query = `SELECT ` + donorColumns + ` FROM donors ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()

	donors := make([]*domain.Donor, 0)
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		donors = append(donors, donor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}

	return donors, nil
}
