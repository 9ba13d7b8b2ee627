package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	"github.com/lorrc/donor-display-backend/internal/core/ports"
)

// MockDonorRepository is a mock implementation of ports.DonorRepository
type MockDonorRepository struct {
	mock.Mock
}

var _ ports.DonorRepository = (*MockDonorRepository)(nil)

func NewMockDonorRepository() *MockDonorRepository {
	return &MockDonorRepository{}
}

func (m *MockDonorRepository) Create(ctx context.Context, donor *domain.Donor) (*domain.Donor, error) {
	args := m.Called(ctx, donor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}

func (m *MockDonorRepository) GetByID(ctx context.Context, id int64) (*domain.Donor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}

func (m *MockDonorRepository) Update(ctx context.Context, donor *domain.Donor) (*domain.Donor, error) {
	args := m.Called(ctx, donor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}

func (m *MockDonorRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDonorRepository) List(ctx context.Context) ([]*domain.Donor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Donor), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(ctx context.Context, event domain.Event) {
	m.Called(ctx, event)
}

// MockDonorService is a mock implementation of ports.DonorService
type MockDonorService struct {
	mock.Mock
}

var _ ports.DonorService = (*MockDonorService)(nil)

func NewMockDonorService() *MockDonorService {
	return &MockDonorService{}
}

func (m *MockDonorService) CreateDonor(ctx context.Context, params domain.DonorParams) (*domain.Donor, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}

func (m *MockDonorService) GetDonor(ctx context.Context, id int64) (*domain.Donor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}

func (m *MockDonorService) ListDonors(ctx context.Context) ([]*domain.Donor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Donor), args.Error(1)
}

func (m *MockDonorService) UpdateDonor(ctx context.Context, id int64, params domain.DonorParams) (*domain.Donor, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}

func (m *MockDonorService) DeleteDonor(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockIngestionService is a mock implementation of ports.IngestionService
type MockIngestionService struct {
	mock.Mock
}

var _ ports.IngestionService = (*MockIngestionService)(nil)

func NewMockIngestionService() *MockIngestionService {
	return &MockIngestionService{}
}

func (m *MockIngestionService) IngestSequence(ctx context.Context, rows []domain.DonorRow) (int, error) {
	args := m.Called(ctx, rows)
	return args.Int(0), args.Error(1)
}

func (m *MockIngestionService) InProgress() bool {
	args := m.Called()
	return args.Bool(0)
}
