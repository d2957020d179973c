package trade

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

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

// memPositionRepo collects appended records in memory. failAppends makes the
// next n Append calls fail, to exercise the engine's retry path.
type memPositionRepo struct {
	mu          sync.Mutex
	records     []*domain.PositionRecord
	failAppends int
	appendCalls int
}

func (m *memPositionRepo) Append(_ context.Context, records ...*domain.PositionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCalls++
	if m.failAppends > 0 {
		m.failAppends--
		return fmt.Errorf("simulated write failure")
	}
	m.records = append(m.records, records...)
	return nil
}

func (m *memPositionRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*domain.PositionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.PositionRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memPositionRepo) SumQuantityBySymbol(_ context.Context, userID uuid.UUID, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, r := range m.records {
		if r.UserID == userID && r.CoinSymbol == symbol {
			sum = sum.Add(r.SignedQuantity)
		}
	}
	return sum, nil
}

// memPortfolioRepo is a thread-safe in-memory PortfolioRepository used to run
// the engine end to end without a database.
type memPortfolioRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domain.User
	holdings map[uuid.UUID]map[string]*domain.Holding
}

func newMemPortfolioRepo() *memPortfolioRepo {
	return &memPortfolioRepo{
		users:    make(map[uuid.UUID]*domain.User),
		holdings: make(map[uuid.UUID]map[string]*domain.Holding),
	}
}

func (m *memPortfolioRepo) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (m *memPortfolioRepo) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *user
	if copied.Version == 0 {
		copied.Version = 1
	}
	m.users[user.ID] = &copied
	return nil
}

func (m *memPortfolioRepo) GetHolding(_ context.Context, userID uuid.UUID, symbol string) (*domain.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	holding, ok := m.holdings[userID][symbol]
	if !ok {
		return nil, fmt.Errorf("holding %s: %w", symbol, domain.ErrNotFound)
	}
	copied := *holding
	return &copied, nil
}

func (m *memPortfolioRepo) ListHoldings(_ context.Context, userID uuid.UUID) ([]*domain.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Holding
	for _, holding := range m.holdings[userID] {
		copied := *holding
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memPortfolioRepo) SaveTrade(_ context.Context, user *domain.User, holdings []*domain.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[user.ID]
	if !ok || stored.Version != user.Version {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrLedgerConflict)
	}
	for _, holding := range holdings {
		if holding.Version != 0 {
			current, ok := m.holdings[user.ID][holding.CoinSymbol]
			if !ok || current.Version != holding.Version {
				return fmt.Errorf("holding %s: %w", holding.CoinSymbol, domain.ErrLedgerConflict)
			}
		}
	}

	copied := *user
	copied.Version++
	m.users[user.ID] = &copied
	user.Version++

	for _, holding := range holdings {
		if m.holdings[user.ID] == nil {
			m.holdings[user.ID] = make(map[string]*domain.Holding)
		}
		h := *holding
		if h.Version == 0 {
			h.Version = 1
			holding.Version = 1
		} else {
			h.Version++
			holding.Version++
		}
		m.holdings[user.ID][holding.CoinSymbol] = &h
	}

	return nil
}
