package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderKind represents the kind of trade requested
type OrderKind string

const (
	OrderKindBuy     OrderKind = "BUY"
	OrderKindSell    OrderKind = "SELL"
	OrderKindConvert OrderKind = "CONVERT"
)

// Order is the transient input to the trade engine. For buys and sells
// exactly one of CashAmount or Quantity is populated; the engine derives the
// missing side from the resolved price. Conversions are always expressed as
// a source-asset quantity.
type Order struct {
	Kind             OrderKind
	CoinSymbol       string
	TargetCoinSymbol string           // convert only
	CashAmount       *decimal.Decimal // USD side
	Quantity         *decimal.Decimal // coin side
}

// Validate ensures the order adheres to domain rules.
// All failures wrap ErrInvalidOrder; an invalid order must be rejected
// before any price or ledger call.
func (o *Order) Validate() error {
	switch o.Kind {
	case OrderKindBuy, OrderKindSell, OrderKindConvert:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOrder, o.Kind)
	}

	if o.CoinSymbol == "" {
		return fmt.Errorf("%w: coin symbol is required", ErrInvalidOrder)
	}

	if o.Kind == OrderKindConvert {
		if o.TargetCoinSymbol == "" {
			return fmt.Errorf("%w: target coin symbol is required for conversion", ErrInvalidOrder)
		}
		if o.TargetCoinSymbol == o.CoinSymbol {
			return fmt.Errorf("%w: cannot convert %s to itself", ErrInvalidOrder, o.CoinSymbol)
		}
		if o.Quantity == nil {
			return fmt.Errorf("%w: conversion requires a source quantity", ErrInvalidOrder)
		}
		if o.CashAmount != nil {
			return fmt.Errorf("%w: conversion cannot specify a cash amount", ErrInvalidOrder)
		}
	} else {
		if o.TargetCoinSymbol != "" {
			return fmt.Errorf("%w: target coin symbol is only valid for conversion", ErrInvalidOrder)
		}
		// Exactly one side; the engine derives the other from the price
		if (o.CashAmount == nil) == (o.Quantity == nil) {
			return fmt.Errorf("%w: exactly one of cash amount or quantity must be set", ErrInvalidOrder)
		}
	}

	if o.CashAmount != nil && o.CashAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: cash amount must be positive", ErrInvalidOrder)
	}

	if o.Quantity != nil && o.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}

	return nil
}
