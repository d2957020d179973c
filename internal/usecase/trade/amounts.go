package trade

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// USDPrecision is the fixed decimal precision for all recorded USD values.
const USDPrecision int32 = 2

// DefaultCryptoPrecision is the decimal precision for coin quantities when
// no precision is configured.
const DefaultCryptoPrecision int32 = 8

// Amounts is the fully-derived pair of sides of a buy or sell: the coin
// quantity and the USD cash amount, both already rounded to their recorded
// precision. Rounding happens exactly once, here at the engine boundary —
// intermediate arithmetic keeps full precision to avoid compounding drift.
type Amounts struct {
	Quantity   decimal.Decimal
	CashAmount decimal.Decimal
}

// deriveAmounts computes the missing side of an order from the unit price.
// An order carries either a cash amount (quantity = cash / price) or a
// quantity (cash = quantity * price); Validate has already ensured exactly
// one is present.
//
// Safety: amounts that round to zero are rejected so that no trade can
// mutate the ledger while recording a zero-quantity or zero-cash leg.
func deriveAmounts(order *domain.Order, unitPrice decimal.Decimal, cryptoPrecision int32) (*Amounts, error) {
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: non-positive unit price %s", domain.ErrPriceUnavailable, unitPrice.String())
	}

	var quantity, cashAmount decimal.Decimal
	if order.CashAmount != nil {
		cashAmount = order.CashAmount.Round(USDPrecision)
		quantity = order.CashAmount.Div(unitPrice).Round(cryptoPrecision)
	} else {
		quantity = order.Quantity.Round(cryptoPrecision)
		cashAmount = order.Quantity.Mul(unitPrice).Round(USDPrecision)
	}

	if quantity.LessThanOrEqual(decimal.Zero) || cashAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount too small to trade at price %s",
			domain.ErrInvalidOrder, unitPrice.String())
	}

	return &Amounts{Quantity: quantity, CashAmount: cashAmount}, nil
}

// conversionQuantity computes the target-side quantity of a conversion:
// toQty = fromQty * (fromPrice / toPrice), rounded once to the configured
// precision. Value is preserved within that rounding tolerance.
func conversionQuantity(fromQty, fromPrice, toPrice decimal.Decimal, cryptoPrecision int32) (decimal.Decimal, error) {
	if fromPrice.LessThanOrEqual(decimal.Zero) || toPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: non-positive conversion price", domain.ErrPriceUnavailable)
	}

	toQty := fromQty.Mul(fromPrice).Div(toPrice).Round(cryptoPrecision)
	if toQty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: conversion amount too small", domain.ErrInvalidOrder)
	}

	return toQty, nil
}
