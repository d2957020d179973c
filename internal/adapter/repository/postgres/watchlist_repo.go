package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// watchlistRepository implements domain.WatchlistRepository
type watchlistRepository struct {
	db *DB
}

// NewWatchlistRepository creates a new watchlist repository
func NewWatchlistRepository(db *DB) domain.WatchlistRepository {
	return &watchlistRepository{db: db}
}

// ListByUser retrieves a user's watchlist entries, oldest first
func (r *watchlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WatchlistEntry, error) {
	query := `
		SELECT id, user_id, coin_symbol, coin_name, created_at
		FROM watchlist_entries
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.WatchlistEntry
	for rows.Next() {
		var entry domain.WatchlistEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.CoinSymbol,
			&entry.CoinName,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlist entries: %w", err)
	}

	return entries, nil
}

// Add creates a watchlist entry
func (r *watchlistRepository) Add(ctx context.Context, entry *domain.WatchlistEntry) error {
	query := `
		INSERT INTO watchlist_entries (id, user_id, coin_symbol, coin_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.CoinSymbol,
		entry.CoinName,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add watchlist entry: %w", err)
	}

	return nil
}

// GetByUserAndSymbol retrieves a user's entry for one coin symbol
func (r *watchlistRepository) GetByUserAndSymbol(ctx context.Context, userID uuid.UUID, symbol string) (*domain.WatchlistEntry, error) {
	query := `
		SELECT id, user_id, coin_symbol, coin_name, created_at
		FROM watchlist_entries
		WHERE user_id = $1 AND coin_symbol = $2
	`

	var entry domain.WatchlistEntry
	err := r.db.QueryRowContext(ctx, query, userID, symbol).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.CoinSymbol,
		&entry.CoinName,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("watchlist entry %s: %w", symbol, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get watchlist entry: %w", err)
	}

	return &entry, nil
}

// Remove deletes an entry by ID
func (r *watchlistRepository) Remove(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM watchlist_entries WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("watchlist entry %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
