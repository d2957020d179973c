package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// Service handles watchlist operations. The watchlist is a per-user set of
// coin symbols with no price or ledger logic attached.
type Service struct {
	Repo domain.WatchlistRepository
}

// NewService creates a new watchlist Service instance
func NewService(repo domain.WatchlistRepository) *Service {
	return &Service{Repo: repo}
}

// List returns the user's watchlist entries, oldest first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.WatchlistEntry, error) {
	entries, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return entries, nil
}

// Add puts a coin on the user's watchlist. Adding a coin that is already
// watched is idempotent and returns the existing entry.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, symbol, name string) (*domain.WatchlistEntry, error) {
	existing, err := s.Repo.GetByUserAndSymbol(ctx, userID, symbol)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check watchlist: %w", err)
	}

	entry := &domain.WatchlistEntry{
		ID:         uuid.New(),
		UserID:     userID,
		CoinSymbol: symbol,
		CoinName:   name,
		CreatedAt:  time.Now().UTC(),
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.Add(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add watchlist entry: %w", err)
	}

	return entry, nil
}

// Remove deletes a watchlist entry by ID
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.Remove(ctx, id); err != nil {
		return err
	}
	return nil
}
