package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// DemoUserID is the fixed UUID of the local demo account, so repeated runs
// against the same database reuse it instead of multiplying users.
var DemoUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// DefaultStartingCash is the cash balance every fresh simulator account
// starts with.
var DefaultStartingCash = decimal.NewFromInt(10000)

// DemoSeeder creates the demo account used for local runs. Signup is an
// external collaborator in production; this stands in for it during
// development.
type DemoSeeder struct {
	repo domain.PortfolioRepository

	StartingCash decimal.Decimal
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(repo domain.PortfolioRepository) *DemoSeeder {
	return &DemoSeeder{
		repo:         repo,
		StartingCash: DefaultStartingCash,
	}
}

// Seed ensures the demo user exists, creating it with the starting cash
// balance if it does not.
func (s *DemoSeeder) Seed(ctx context.Context) (*domain.User, error) {
	user, err := s.repo.GetUser(ctx, DemoUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up demo user: %w", err)
	}

	user = &domain.User{
		ID:          DemoUserID,
		Name:        "Demo Trader",
		Email:       "demo@moonfolio.local",
		CashBalance: s.StartingCash,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create demo user: %w", err)
	}

	return user, nil
}
