package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionRecord is the immutable audit entry for one executed trade leg.
// Records are append-only: never mutated or deleted. Summing SignedQuantity
// over a holding's records yields the holding's current quantity.
type PositionRecord struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	HoldingID      uuid.UUID
	CoinSymbol     string
	SignedQuantity decimal.Decimal // positive for buy legs, negative for sell legs
	UnitPrice      decimal.Decimal // USD price at execution
	CashDelta      decimal.Decimal // negative for buys, positive for sells, zero for conversions
	// ConversionPairID links the two legs of a conversion so they reconcile
	// together. NULL for plain buys and sells.
	ConversionPairID *uuid.UUID
	ExecutedAt       time.Time
}

// Validate ensures the record adheres to domain rules
// CRITICAL: the sign of CashDelta must oppose the sign of SignedQuantity,
// so that every balance change is described by exactly this record.
func (p *PositionRecord) Validate() error {
	if p.CoinSymbol == "" {
		return errors.New("position record coin symbol cannot be empty")
	}

	if p.SignedQuantity.IsZero() {
		return errors.New("position record quantity cannot be zero")
	}

	if p.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return errors.New("position record unit price must be positive")
	}

	if p.ConversionPairID != nil {
		// Conversion legs move coins, never cash
		if !p.CashDelta.IsZero() {
			return errors.New("conversion record cash delta must be zero")
		}
		return nil
	}

	if p.SignedQuantity.IsPositive() && p.CashDelta.IsPositive() {
		return errors.New("buy record cash delta cannot be positive")
	}

	if p.SignedQuantity.IsNegative() && p.CashDelta.IsNegative() {
		return errors.New("sell record cash delta cannot be negative")
	}

	return nil
}
