package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding represents a user's position in one coin.
// A user has at most one holding per coin symbol; it is created on the first
// buy of that symbol and its quantity is pinned at zero when fully sold.
type Holding struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	CoinSymbol string // oracle asset identifier, e.g. "bitcoin"
	CoinName   string
	Quantity   decimal.Decimal
	Version    int64 // optimistic concurrency token, incremented on every write
}

// Validate ensures the holding adheres to domain rules
func (h *Holding) Validate() error {
	if h.CoinSymbol == "" {
		return errors.New("holding coin symbol cannot be empty")
	}

	if h.UserID == uuid.Nil {
		return errors.New("holding must belong to a user")
	}

	if h.Quantity.IsNegative() {
		return errors.New("holding quantity cannot be negative")
	}

	return nil
}
