package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
	"github.com/lorrc/donor-display-backend/internal/core/ports"
	"github.com/lorrc/donor-display-backend/internal/infrastructure/logging"
	"github.com/lorrc/donor-display-backend/internal/infrastructure/metrics"
)

// DefaultPacingInterval is the delay between two bulk broadcasts.
const DefaultPacingInterval = 1500 * time.Millisecond

// IngestionConfig configures the bulk ingestion pipeline
type IngestionConfig struct {
	PacingInterval time.Duration
	Clock          clockwork.Clock
}

// IngestionService runs paced, strictly ordered bulk ingestion.
// Only one run may be active at a time.
type IngestionService struct {
	donorRepo   ports.DonorRepository
	broadcaster ports.EventBroadcaster
	clock       clockwork.Clock
	pacing      time.Duration
	logger      *slog.Logger

	// running is held for the whole duration of a run
	running sync.Mutex
	active  atomic.Bool
}

var _ ports.IngestionService = (*IngestionService)(nil)

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	donorRepo ports.DonorRepository,
	broadcaster ports.EventBroadcaster,
	cfg IngestionConfig,
	logger *slog.Logger,
) ports.IngestionService {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	pacing := cfg.PacingInterval
	if pacing < 0 {
		pacing = 0
	}

	return &IngestionService{
		donorRepo:   donorRepo,
		broadcaster: broadcaster,
		clock:       clock,
		pacing:      pacing,
		logger:      logger.With("component", "ingestion_service"),
	}
}

// IngestSequence normalizes, persists and broadcasts each row in input order,
// waiting the pacing interval between rows. It stops at the first row that
// fails validation or persistence; rows before it stay persisted and
// broadcast. The returned count is the number of completed rows.
func (s *IngestionService) IngestSequence(ctx context.Context, rows []domain.DonorRow) (int, error) {
	if !s.running.TryLock() {
		metrics.IngestionRunsTotal.WithLabelValues("rejected").Inc()
		return 0, apperrors.ErrIngestionInProgress
	}
	defer s.running.Unlock()
	s.active.Store(true)
	defer s.active.Store(false)

	ctx = logging.WithBatchID(ctx, uuid.NewString())
	start := s.clock.Now()
	outcome := "success"
	defer func() {
		metrics.IngestionRunsTotal.WithLabelValues(outcome).Inc()
		metrics.IngestionDuration.Observe(s.clock.Since(start).Seconds())
	}()

	s.logger.InfoContext(ctx, "bulk ingestion started",
		"rows", len(rows),
		"pacing_interval", s.pacing.String(),
	)

	processed := 0
	for i, row := range rows {
		if i > 0 {
			if err := s.pace(ctx); err != nil {
				outcome = "canceled"
				s.logger.WarnContext(ctx, "bulk ingestion canceled", "processed", processed, "error", err)
				return processed, err
			}
		} else if err := ctx.Err(); err != nil {
			outcome = "canceled"
			return processed, err
		}

		rowNum := i + 1

		params, err := row.Normalize()
		if err != nil {
			outcome = "validation_error"
			s.logger.WarnContext(ctx, "bulk row rejected",
				"row", rowNum,
				"processed", processed,
				"error", err,
			)
			return processed, &apperrors.RowError{Row: rowNum, Err: err}
		}

		donor, err := domain.NewDonor(params)
		if err != nil {
			outcome = "validation_error"
			return processed, &apperrors.RowError{Row: rowNum, Err: err}
		}

		created, err := s.donorRepo.Create(ctx, donor)
		if err != nil {
			outcome = "persistence_error"
			s.logger.ErrorContext(ctx, "bulk row persistence failed",
				"row", rowNum,
				"processed", processed,
				"error", err,
			)
			return processed, &apperrors.RowError{
				Row: rowNum,
				Err: &apperrors.PersistenceError{Op: "create", Err: err},
			}
		}

		s.broadcaster.Broadcast(ctx, domain.NewDonorEvent(created))
		processed++
		metrics.DonorsIngestedTotal.Inc()

		if !domain.Grade(created.Grade).IsKnown() {
			s.logger.WarnContext(ctx, "donor grade has no display style", "row", rowNum, "grade", created.Grade)
		}

		s.logger.DebugContext(ctx, "bulk row ingested", "row", rowNum, "donor_id", created.ID)
	}

	s.logger.InfoContext(ctx, "bulk ingestion finished",
		"processed", processed,
		"duration_ms", s.clock.Since(start).Milliseconds(),
	)

	return processed, nil
}

// InProgress reports whether a run is currently active
func (s *IngestionService) InProgress() bool {
	return s.active.Load()
}

// pace blocks the calling run, and only that run, for one pacing interval.
func (s *IngestionService) pace(ctx context.Context) error {
	if s.pacing == 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.pacing):
		return nil
	}
}
