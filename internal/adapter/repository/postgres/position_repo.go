package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// positionRepository implements domain.PositionRepository
type positionRepository struct {
	db *DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *DB) domain.PositionRepository {
	return &positionRepository{db: db}
}

// Append persists position records in a single database transaction.
// Records are insert-only; nothing here updates or deletes.
func (r *positionRepository) Append(ctx context.Context, records ...*domain.PositionRecord) error {
	if len(records) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertQuery := `
		INSERT INTO position_records
			(id, user_id, holding_id, coin_symbol, signed_quantity, unit_price, cash_delta, conversion_pair_id, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, record := range records {
		var pairID interface{}
		if record.ConversionPairID != nil {
			pairID = *record.ConversionPairID
		}

		_, err = dbTx.ExecContext(ctx, insertQuery,
			record.ID,
			record.UserID,
			record.HoldingID,
			record.CoinSymbol,
			record.SignedQuantity.String(),
			record.UnitPrice.String(),
			record.CashDelta.String(),
			pairID,
			record.ExecutedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert position record: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit position records: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's records, newest first, paginated
func (r *positionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.PositionRecord, error) {
	query := `
		SELECT id, user_id, holding_id, coin_symbol, signed_quantity, unit_price, cash_delta, conversion_pair_id, executed_at
		FROM position_records
		WHERE user_id = $1
		ORDER BY executed_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list position records: %w", err)
	}
	defer rows.Close()

	var records []*domain.PositionRecord
	for rows.Next() {
		var record domain.PositionRecord
		var quantityStr, priceStr, deltaStr string
		var pairID uuid.NullUUID

		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.HoldingID,
			&record.CoinSymbol,
			&quantityStr,
			&priceStr,
			&deltaStr,
			&pairID,
			&record.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position record: %w", err)
		}

		if record.SignedQuantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("failed to parse signed_quantity: %w", err)
		}
		if record.UnitPrice, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse unit_price: %w", err)
		}
		if record.CashDelta, err = decimal.NewFromString(deltaStr); err != nil {
			return nil, fmt.Errorf("failed to parse cash_delta: %w", err)
		}
		if pairID.Valid {
			id := pairID.UUID
			record.ConversionPairID = &id
		}

		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate position records: %w", err)
	}

	return records, nil
}

// SumQuantityBySymbol sums signed quantities over a user's records for one symbol
func (r *positionRepository) SumQuantityBySymbol(ctx context.Context, userID uuid.UUID, symbol string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(signed_quantity), 0)
		FROM position_records
		WHERE user_id = $1 AND coin_symbol = $2
	`

	var sumStr string
	if err := r.db.QueryRowContext(ctx, query, userID, symbol).Scan(&sumStr); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum position records: %w", err)
	}

	sum, err := decimal.NewFromString(sumStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse record sum: %w", err)
	}

	return sum, nil
}
