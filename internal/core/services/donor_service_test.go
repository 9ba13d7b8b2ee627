package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
	"github.com/lorrc/donor-display-backend/internal/core/mocks"
	"github.com/lorrc/donor-display-backend/internal/core/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDonorService_CreateDonor_GradeStyleWarning(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		grade    string
		wantWarn bool
	}{
		{grade: "gold", wantWarn: false},
		{grade: "VVIP", wantWarn: false},
		{grade: "bronze", wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.grade, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			mockRepo := mocks.NewMockDonorRepository()
			mockBroadcaster := mocks.NewMockEventBroadcaster()
			svc := services.NewDonorService(mockRepo, mockBroadcaster, logger)

			mockRepo.On("Create", ctx, mock.Anything).
				Return(&domain.Donor{ID: 2, Name: "Lee", Amount: 10, Grade: tt.grade}, nil)
			mockBroadcaster.On("Broadcast", ctx, mock.Anything).Return()

			_, err := svc.CreateDonor(ctx, domain.DonorParams{Name: "Lee", Amount: 10, Grade: tt.grade})

			require.NoError(t, err)
			mockBroadcaster.AssertNumberOfCalls(t, "Broadcast", 1)
			if tt.wantWarn {
				assert.Contains(t, buf.String(), "donor grade has no display style")
			} else {
				assert.NotContains(t, buf.String(), "display style")
			}
		})
	}
}

func TestDonorService_CreateDonor(t *testing.T) {
	ctx := context.Background()

	t.Run("persists then broadcasts one envelope", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		persisted := false
		mockRepo.On("Create", ctx, mock.MatchedBy(func(d *domain.Donor) bool {
			return d.Name == "Kim" && d.Amount == 50000 && d.Grade == "gold" && d.Message == ""
		})).
			Run(func(mock.Arguments) { persisted = true }).
			Return(&domain.Donor{ID: 1, Name: "Kim", Amount: 50000, Grade: "gold"}, nil)

		expected := domain.Event{
			Type:    domain.EventNewDonor,
			Payload: domain.DonorEvent{Name: "Kim", Amount: 50000, Grade: "gold", Message: ""},
		}
		mockBroadcaster.On("Broadcast", ctx, expected).
			Run(func(mock.Arguments) {
				assert.True(t, persisted, "broadcast must follow the store write")
			}).
			Return()

		donor, err := svc.CreateDonor(ctx, domain.DonorParams{Name: "Kim", Amount: 50000, Grade: "gold"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), donor.ID)
		assert.Equal(t, "gold", donor.Grade)
		mockRepo.AssertExpectations(t)
		mockBroadcaster.AssertNumberOfCalls(t, "Broadcast", 1)
	})

	t.Run("validation error skips store and broadcast", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		donor, err := svc.CreateDonor(ctx, domain.DonorParams{Name: "", Amount: 10, Grade: "GOLD"})

		assert.Nil(t, donor)
		assert.ErrorIs(t, err, apperrors.ErrNameRequired)
		mockRepo.AssertNumberOfCalls(t, "Create", 0)
		mockBroadcaster.AssertNumberOfCalls(t, "Broadcast", 0)
	})

	t.Run("store failure is a persistence error and nothing is broadcast", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		storeErr := errors.New("connection reset")
		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Donor")).Return(nil, storeErr)

		donor, err := svc.CreateDonor(ctx, domain.DonorParams{Name: "Kim", Amount: 10, Grade: "GOLD"})

		assert.Nil(t, donor)
		var persistErr *apperrors.PersistenceError
		require.ErrorAs(t, err, &persistErr)
		assert.ErrorIs(t, err, storeErr)
		mockBroadcaster.AssertNumberOfCalls(t, "Broadcast", 0)
	})
}

func TestDonorService_UpdateDonor(t *testing.T) {
	ctx := context.Background()

	t.Run("updates without broadcasting", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		existing := &domain.Donor{ID: 4, Name: "Kim", Amount: 10, Grade: "GOLD"}
		mockRepo.On("GetByID", ctx, int64(4)).Return(existing, nil)
		mockRepo.On("Update", ctx, mock.MatchedBy(func(d *domain.Donor) bool {
			return d.ID == 4 && d.Amount == 99 && d.Grade == "VVIP"
		})).Return(&domain.Donor{ID: 4, Name: "Kim", Amount: 99, Grade: "VVIP"}, nil)

		donor, err := svc.UpdateDonor(ctx, 4, domain.DonorParams{Name: "Kim", Amount: 99, Grade: "VVIP"})

		require.NoError(t, err)
		assert.Equal(t, int64(99), donor.Amount)
		mockRepo.AssertExpectations(t)
		mockBroadcaster.AssertNumberOfCalls(t, "Broadcast", 0)
	})

	t.Run("missing donor", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		mockRepo.On("GetByID", ctx, int64(404)).Return(nil, apperrors.ErrDonorNotFound)

		donor, err := svc.UpdateDonor(ctx, 404, domain.DonorParams{Name: "Kim", Grade: "GOLD"})

		assert.Nil(t, donor)
		assert.ErrorIs(t, err, apperrors.ErrDonorNotFound)
		mockRepo.AssertNumberOfCalls(t, "Update", 0)
	})

	t.Run("invalid input", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		mockRepo.On("GetByID", ctx, int64(4)).Return(&domain.Donor{ID: 4, Name: "Kim", Grade: "GOLD"}, nil)

		_, err := svc.UpdateDonor(ctx, 4, domain.DonorParams{Name: "Kim"})

		assert.ErrorIs(t, err, apperrors.ErrGradeRequired)
		mockRepo.AssertNumberOfCalls(t, "Update", 0)
	})
}

func TestDonorService_DeleteDonor(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes without broadcasting", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		mockRepo.On("Delete", ctx, int64(2)).Return(nil)

		require.NoError(t, svc.DeleteDonor(ctx, 2))
		mockBroadcaster.AssertNumberOfCalls(t, "Broadcast", 0)
	})

	t.Run("non-existent id is not found and never broadcasts", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		mockRepo.On("Delete", ctx, int64(999)).Return(apperrors.ErrDonorNotFound)

		err := svc.DeleteDonor(ctx, 999)

		assert.ErrorIs(t, err, apperrors.ErrDonorNotFound)
		mockBroadcaster.AssertNumberOfCalls(t, "Broadcast", 0)
	})

	t.Run("store failure", func(t *testing.T) {
		mockRepo := mocks.NewMockDonorRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewDonorService(mockRepo, mockBroadcaster, discardLogger())

		mockRepo.On("Delete", ctx, int64(2)).Return(errors.New("disk full"))

		var persistErr *apperrors.PersistenceError
		assert.ErrorAs(t, svc.DeleteDonor(ctx, 2), &persistErr)
	})
}

func TestDonorService_ReadPaths(t *testing.T) {
	ctx := context.Background()
	mockRepo := mocks.NewMockDonorRepository()
	svc := services.NewDonorService(mockRepo, mocks.NewMockEventBroadcaster(), discardLogger())

	donors := []*domain.Donor{{ID: 1, Name: "Kim"}, {ID: 2, Name: "Lee"}}
	mockRepo.On("List", ctx).Return(donors, nil)
	mockRepo.On("GetByID", ctx, int64(2)).Return(donors[1], nil)

	list, err := svc.ListDonors(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	donor, err := svc.GetDonor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Lee", donor.Name)
}
