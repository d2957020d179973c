package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/ledger"
)

const (
	defaultPriceTimeout   = 5 * time.Second
	historyWriteAttempts  = 3
	historyInitialBackoff = 50 * time.Millisecond
)

// TradeReceipt is the confirmation returned on successful execution,
// including the resulting balances the UI renders without a follow-up read.
type TradeReceipt struct {
	Kind             domain.OrderKind         `json:"kind"`
	CoinSymbol       string                   `json:"coin_symbol"`
	Quantity         decimal.Decimal          `json:"quantity"`
	UnitPrice        decimal.Decimal          `json:"unit_price"`
	CashDelta        decimal.Decimal          `json:"cash_delta"`
	TargetCoinSymbol string                   `json:"target_coin_symbol,omitempty"`
	TargetQuantity   decimal.Decimal          `json:"target_quantity,omitempty"`
	TargetUnitPrice  decimal.Decimal          `json:"target_unit_price,omitempty"`
	CashBalance      decimal.Decimal          `json:"cash_balance"`
	HoldingQuantity  decimal.Decimal          `json:"holding_quantity"`
	TargetHolding    decimal.Decimal          `json:"target_holding_quantity,omitempty"`
	Records          []*domain.PositionRecord `json:"records"`
	ExecutedAt       time.Time                `json:"executed_at"`
}

// Engine orchestrates a single trade request against the ledger and the
// price oracle, producing position history entries.
//
// Execution phases for one order:
//  1. Validate the order (ErrInvalidOrder, no I/O yet)
//  2. Resolve price(s) through the oracle, outside any lock and bounded by
//     PriceTimeout — the resolved price is final for the whole trade
//  3. Acquire the per-user lock and re-validate + apply through the ledger
//  4. Append position record(s), retried with backoff; only after the append
//     is durable does Execute return
//
// A ledger failure leaves no record behind; an exhausted history append
// after a committed mutation surfaces ErrHistoryWriteFailed.
type Engine struct {
	Ledger    *ledger.PortfolioLedger
	Oracle    domain.PriceOracle
	Positions domain.PositionRepository

	Log             logrus.FieldLogger
	CryptoPrecision int32
	PriceTimeout    time.Duration
}

// NewEngine creates a new Engine instance
func NewEngine(l *ledger.PortfolioLedger, oracle domain.PriceOracle, positions domain.PositionRepository, log logrus.FieldLogger) *Engine {
	return &Engine{
		Ledger:          l,
		Oracle:          oracle,
		Positions:       positions,
		Log:             log,
		CryptoPrecision: DefaultCryptoPrecision,
		PriceTimeout:    defaultPriceTimeout,
	}
}

// Execute validates the order, resolves prices, applies the mutation and
// records history. It is synchronous: success means both the balance change
// and its audit record are durable.
func (e *Engine) Execute(ctx context.Context, userID uuid.UUID, order *domain.Order) (*TradeReceipt, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	// Price resolution happens before the user lock so a stalled feed
	// cannot block the user's other trades.
	price, err := e.resolvePrice(ctx, order.CoinSymbol)
	if err != nil {
		return nil, err
	}

	var targetPrice *domain.PricePoint
	if order.Kind == domain.OrderKindConvert {
		targetPrice, err = e.resolvePrice(ctx, order.TargetCoinSymbol)
		if err != nil {
			return nil, err
		}
	}

	unlock := e.Ledger.LockUser(userID)
	defer unlock()

	switch order.Kind {
	case domain.OrderKindBuy:
		return e.executeBuy(ctx, userID, order, price)
	case domain.OrderKindSell:
		return e.executeSell(ctx, userID, order, price)
	default:
		return e.executeConvert(ctx, userID, order, price, targetPrice)
	}
}

func (e *Engine) executeBuy(ctx context.Context, userID uuid.UUID, order *domain.Order, price *domain.PricePoint) (*TradeReceipt, error) {
	amounts, err := deriveAmounts(order, price.UnitPriceUSD, e.CryptoPrecision)
	if err != nil {
		return nil, err
	}

	state, err := e.Ledger.ApplyBuy(ctx, userID, order.CoinSymbol, price.Name, amounts.Quantity, amounts.CashAmount)
	if err != nil {
		return nil, err
	}

	record := &domain.PositionRecord{
		ID:             uuid.New(),
		UserID:         userID,
		HoldingID:      state.Holding.ID,
		CoinSymbol:     order.CoinSymbol,
		SignedQuantity: amounts.Quantity,
		UnitPrice:      price.UnitPriceUSD,
		CashDelta:      amounts.CashAmount.Neg(),
		ExecutedAt:     time.Now().UTC(),
	}

	if err := e.appendHistory(ctx, record); err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"user_id":  userID,
		"symbol":   order.CoinSymbol,
		"quantity": amounts.Quantity,
		"cash":     amounts.CashAmount,
	}).Info("buy executed")

	return &TradeReceipt{
		Kind:            domain.OrderKindBuy,
		CoinSymbol:      order.CoinSymbol,
		Quantity:        amounts.Quantity,
		UnitPrice:       price.UnitPriceUSD,
		CashDelta:       amounts.CashAmount.Neg(),
		CashBalance:     state.CashBalance,
		HoldingQuantity: state.Holding.Quantity,
		Records:         []*domain.PositionRecord{record},
		ExecutedAt:      record.ExecutedAt,
	}, nil
}

func (e *Engine) executeSell(ctx context.Context, userID uuid.UUID, order *domain.Order, price *domain.PricePoint) (*TradeReceipt, error) {
	amounts, err := deriveAmounts(order, price.UnitPriceUSD, e.CryptoPrecision)
	if err != nil {
		return nil, err
	}

	state, err := e.Ledger.ApplySell(ctx, userID, order.CoinSymbol, amounts.Quantity, amounts.CashAmount)
	if err != nil {
		return nil, err
	}

	record := &domain.PositionRecord{
		ID:             uuid.New(),
		UserID:         userID,
		HoldingID:      state.Holding.ID,
		CoinSymbol:     order.CoinSymbol,
		SignedQuantity: amounts.Quantity.Neg(),
		UnitPrice:      price.UnitPriceUSD,
		CashDelta:      amounts.CashAmount,
		ExecutedAt:     time.Now().UTC(),
	}

	if err := e.appendHistory(ctx, record); err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"user_id":  userID,
		"symbol":   order.CoinSymbol,
		"quantity": amounts.Quantity,
		"cash":     amounts.CashAmount,
	}).Info("sell executed")

	return &TradeReceipt{
		Kind:            domain.OrderKindSell,
		CoinSymbol:      order.CoinSymbol,
		Quantity:        amounts.Quantity,
		UnitPrice:       price.UnitPriceUSD,
		CashDelta:       amounts.CashAmount,
		CashBalance:     state.CashBalance,
		HoldingQuantity: state.Holding.Quantity,
		Records:         []*domain.PositionRecord{record},
		ExecutedAt:      record.ExecutedAt,
	}, nil
}

func (e *Engine) executeConvert(ctx context.Context, userID uuid.UUID, order *domain.Order, fromPrice, toPrice *domain.PricePoint) (*TradeReceipt, error) {
	fromQty := order.Quantity.Round(e.CryptoPrecision)
	if fromQty.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: conversion amount too small", domain.ErrInvalidOrder)
	}

	toQty, err := conversionQuantity(fromQty, fromPrice.UnitPriceUSD, toPrice.UnitPriceUSD, e.CryptoPrecision)
	if err != nil {
		return nil, err
	}

	state, err := e.Ledger.ApplyConvert(ctx, userID, order.CoinSymbol, order.TargetCoinSymbol, toPrice.Name, fromQty, toQty)
	if err != nil {
		return nil, err
	}

	// Both legs share a pair ID so they reconcile together and carry no cash
	pairID := uuid.New()
	executedAt := time.Now().UTC()

	fromRecord := &domain.PositionRecord{
		ID:               uuid.New(),
		UserID:           userID,
		HoldingID:        state.Holding.ID,
		CoinSymbol:       order.CoinSymbol,
		SignedQuantity:   fromQty.Neg(),
		UnitPrice:        fromPrice.UnitPriceUSD,
		CashDelta:        decimal.Zero,
		ConversionPairID: &pairID,
		ExecutedAt:       executedAt,
	}
	toRecord := &domain.PositionRecord{
		ID:               uuid.New(),
		UserID:           userID,
		HoldingID:        state.TargetHolding.ID,
		CoinSymbol:       order.TargetCoinSymbol,
		SignedQuantity:   toQty,
		UnitPrice:        toPrice.UnitPriceUSD,
		CashDelta:        decimal.Zero,
		ConversionPairID: &pairID,
		ExecutedAt:       executedAt,
	}

	if err := e.appendHistory(ctx, fromRecord, toRecord); err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"user_id":     userID,
		"from_symbol": order.CoinSymbol,
		"to_symbol":   order.TargetCoinSymbol,
		"from_qty":    fromQty,
		"to_qty":      toQty,
	}).Info("conversion executed")

	return &TradeReceipt{
		Kind:             domain.OrderKindConvert,
		CoinSymbol:       order.CoinSymbol,
		Quantity:         fromQty,
		UnitPrice:        fromPrice.UnitPriceUSD,
		CashDelta:        decimal.Zero,
		TargetCoinSymbol: order.TargetCoinSymbol,
		TargetQuantity:   toQty,
		TargetUnitPrice:  toPrice.UnitPriceUSD,
		CashBalance:      state.CashBalance,
		HoldingQuantity:  state.Holding.Quantity,
		TargetHolding:    state.TargetHolding.Quantity,
		Records:          []*domain.PositionRecord{fromRecord, toRecord},
		ExecutedAt:       executedAt,
	}, nil
}

// resolvePrice fetches the current price once, bounded by PriceTimeout.
// The result is authoritative for the rest of the trade; the engine never
// re-fetches mid-transaction, so the executed price and the recorded price
// are always the same.
func (e *Engine) resolvePrice(ctx context.Context, symbol string) (*domain.PricePoint, error) {
	timeout := e.PriceTimeout
	if timeout <= 0 {
		timeout = defaultPriceTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	price, err := e.Oracle.GetPrice(pctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrPriceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, symbol, err)
	}
	return price, nil
}

// appendHistory makes the position record(s) durable, retrying transient
// failures with backoff. The balance mutation is already committed when
// this runs, so the append is retried rather than the trade; exhaustion
// surfaces ErrHistoryWriteFailed so callers alert and reconcile instead of
// resubmitting the order.
func (e *Engine) appendHistory(ctx context.Context, records ...*domain.PositionRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, err)
		}
	}

	var lastErr error
	backoff := historyInitialBackoff
	for attempt := 0; attempt < historyWriteAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = e.Positions.Append(ctx, records...)
		if lastErr == nil {
			return nil
		}

		e.Log.WithError(lastErr).WithField("attempt", attempt+1).
			Warn("position history append failed")
	}

	return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, lastErr)
}
