package portfolio

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// MockPortfolioRepository is a mock implementation of domain.PortfolioRepository
type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockPortfolioRepository) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockPortfolioRepository) GetHolding(ctx context.Context, userID uuid.UUID, symbol string) (*domain.Holding, error) {
	args := m.Called(ctx, userID, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Holding), args.Error(1)
}

func (m *MockPortfolioRepository) ListHoldings(ctx context.Context, userID uuid.UUID) ([]*domain.Holding, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Holding), args.Error(1)
}

func (m *MockPortfolioRepository) SaveTrade(ctx context.Context, user *domain.User, holdings []*domain.Holding) error {
	args := m.Called(ctx, user, holdings)
	return args.Error(0)
}

// MockPositionRepository is a mock implementation of domain.PositionRepository
type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) Append(ctx context.Context, records ...*domain.PositionRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockPositionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.PositionRecord, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PositionRecord), args.Error(1)
}

func (m *MockPositionRepository) SumQuantityBySymbol(ctx context.Context, userID uuid.UUID, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockPriceOracle is a mock implementation of domain.PriceOracle
type MockPriceOracle struct {
	mock.Mock
}

func (m *MockPriceOracle) GetPrice(ctx context.Context, symbol string) (*domain.PricePoint, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PricePoint), args.Error(1)
}

func (m *MockPriceOracle) GetHistory(ctx context.Context, symbol string, period domain.HistoryPeriod) ([]domain.PricePoint, error) {
	args := m.Called(ctx, symbol, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PricePoint), args.Error(1)
}

func (m *MockPriceOracle) ListSymbols(ctx context.Context) ([]domain.PricePoint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PricePoint), args.Error(1)
}
