package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PortfolioRepository defines the persistence boundary for users and their
// holdings. Implementations must provide optimistic or transactional
// semantics sufficient to back the ledger's per-user atomicity: SaveTrade
// applies all passed rows in one transaction and fails with
// ErrLedgerConflict if any row's version no longer matches.
type PortfolioRepository interface {
	// GetUser retrieves a user by ID, including the current version token
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	// CreateUser creates a new user with its starting cash balance
	CreateUser(ctx context.Context, user *User) error

	// GetHolding retrieves a user's holding for one coin symbol.
	// Returns ErrNotFound if the user has never bought the coin.
	GetHolding(ctx context.Context, userID uuid.UUID, symbol string) (*Holding, error)

	// ListHoldings retrieves all holdings for a user, ordered by symbol
	ListHoldings(ctx context.Context, userID uuid.UUID) ([]*Holding, error)

	// SaveTrade persists an updated cash balance together with the updated
	// (or newly created) holdings of one trade, atomically. Each row is
	// written with a version check against the version it was read at;
	// a mismatch fails the whole transaction with ErrLedgerConflict.
	SaveTrade(ctx context.Context, user *User, holdings []*Holding) error
}

// PositionRepository defines the persistence boundary for the append-only
// trade audit trail.
type PositionRepository interface {
	// Append persists one or more position records in a single transaction.
	// The two legs of a conversion are always appended together.
	Append(ctx context.Context, records ...*PositionRecord) error

	// ListByUser retrieves a user's records, newest first, paginated
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*PositionRecord, error)

	// SumQuantityBySymbol sums SignedQuantity over a user's records for one
	// coin symbol. Used by the reconciliation check.
	SumQuantityBySymbol(ctx context.Context, userID uuid.UUID, symbol string) (decimal.Decimal, error)
}

// WatchlistRepository defines the persistence boundary for watchlist entries.
type WatchlistRepository interface {
	// ListByUser retrieves a user's watchlist entries, oldest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*WatchlistEntry, error)

	// Add creates a watchlist entry
	Add(ctx context.Context, entry *WatchlistEntry) error

	// GetByUserAndSymbol retrieves a user's entry for one coin symbol.
	// Returns ErrNotFound if the coin is not on the watchlist.
	GetByUserAndSymbol(ctx context.Context, userID uuid.UUID, symbol string) (*WatchlistEntry, error)

	// Remove deletes an entry by ID. Returns ErrNotFound if it is absent.
	Remove(ctx context.Context, id uuid.UUID) error
}
