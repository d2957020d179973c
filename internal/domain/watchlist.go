package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// WatchlistEntry marks a coin a user is tracking without holding it.
type WatchlistEntry struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	CoinSymbol string
	CoinName   string
	CreatedAt  time.Time
}

// Validate ensures the watchlist entry adheres to domain rules
func (w *WatchlistEntry) Validate() error {
	if w.CoinSymbol == "" {
		return errors.New("watchlist coin symbol cannot be empty")
	}

	if w.UserID == uuid.Nil {
		return errors.New("watchlist entry must belong to a user")
	}

	return nil
}
