package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	db *DB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioRepository {
	return &portfolioRepository{db: db}
}

// GetUser retrieves a user by ID
func (r *portfolioRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, name, email, cash_balance, version
		FROM users
		WHERE id = $1
	`

	var user domain.User
	var balanceStr string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&balanceStr,
		&user.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cash_balance: %w", err)
	}
	user.CashBalance = balance

	return &user, nil
}

// CreateUser creates a new user
func (r *portfolioRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, cash_balance, version)
		VALUES ($1, $2, $3, $4, 1)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.CashBalance.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetHolding retrieves a user's holding for one coin symbol
func (r *portfolioRepository) GetHolding(ctx context.Context, userID uuid.UUID, symbol string) (*domain.Holding, error) {
	query := `
		SELECT id, user_id, coin_symbol, coin_name, quantity, version
		FROM holdings
		WHERE user_id = $1 AND coin_symbol = $2
	`

	holding, err := scanHolding(r.db.QueryRowContext(ctx, query, userID, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("holding %s for user %s: %w", symbol, userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return holding, nil
}

// ListHoldings retrieves all holdings for a user, ordered by symbol
func (r *portfolioRepository) ListHoldings(ctx context.Context, userID uuid.UUID) ([]*domain.Holding, error) {
	query := `
		SELECT id, user_id, coin_symbol, coin_name, quantity, version
		FROM holdings
		WHERE user_id = $1
		ORDER BY coin_symbol
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, holding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}

	return holdings, nil
}

// SaveTrade persists an updated cash balance and the holdings of one trade
// in a single database transaction. Every row carries a version check: an
// UPDATE that matches zero rows means another writer got there first, and
// the whole transaction fails with ErrLedgerConflict so the ledger can
// retry from a fresh read.
func (r *portfolioRepository) SaveTrade(ctx context.Context, user *domain.User, holdings []*domain.Holding) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	updateUserQuery := `
		UPDATE users
		SET cash_balance = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`

	res, err := dbTx.ExecContext(ctx, updateUserQuery,
		user.CashBalance.String(),
		user.ID,
		user.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update user balance: %w", err)
	}
	if err := requireOneRow(res, "user "+user.ID.String()); err != nil {
		return err
	}

	insertHoldingQuery := `
		INSERT INTO holdings (id, user_id, coin_symbol, coin_name, quantity, version)
		VALUES ($1, $2, $3, $4, $5, 1)
	`
	updateHoldingQuery := `
		UPDATE holdings
		SET quantity = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`

	for _, holding := range holdings {
		if holding.Version == 0 {
			// New holding created by this trade
			_, err = dbTx.ExecContext(ctx, insertHoldingQuery,
				holding.ID,
				holding.UserID,
				holding.CoinSymbol,
				holding.CoinName,
				holding.Quantity.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", holding.CoinSymbol, err)
			}
			continue
		}

		res, err := dbTx.ExecContext(ctx, updateHoldingQuery,
			holding.Quantity.String(),
			holding.ID,
			holding.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update holding %s: %w", holding.CoinSymbol, err)
		}
		if err := requireOneRow(res, "holding "+holding.CoinSymbol); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade: %w", err)
	}

	// Reflect the committed versions so a subsequent write in the same
	// ledger operation checks against current state
	user.Version++
	for _, holding := range holdings {
		if holding.Version == 0 {
			holding.Version = 1
		} else {
			holding.Version++
		}
	}

	return nil
}

// requireOneRow translates a zero-row optimistic update into ErrLedgerConflict
func requireOneRow(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrLedgerConflict)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var holding domain.Holding
	var quantityStr string

	err := row.Scan(
		&holding.ID,
		&holding.UserID,
		&holding.CoinSymbol,
		&holding.CoinName,
		&quantityStr,
		&holding.Version,
	)
	if err != nil {
		return nil, err
	}

	quantity, err := decimal.NewFromString(quantityStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quantity: %w", err)
	}
	holding.Quantity = quantity

	return &holding, nil
}
