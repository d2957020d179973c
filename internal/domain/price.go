package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryPeriod selects the granularity of a price history query.
// The values mirror the time ranges offered by the trading UI.
type HistoryPeriod string

const (
	PeriodIntraday HistoryPeriod = "intraday" // today, minute candles
	PeriodMonthly  HistoryPeriod = "monthly"  // this month, hourly candles
	PeriodYearly   HistoryPeriod = "yearly"   // this year, daily candles
)

// Valid reports whether the period is one of the supported ranges.
func (p HistoryPeriod) Valid() bool {
	switch p {
	case PeriodIntraday, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// PricePoint is a snapshot of one coin's price and market metadata, sourced
// from the oracle at the moment of execution and never cached across a
// trade's mutation.
type PricePoint struct {
	CoinSymbol       string          `json:"coin_symbol"`
	Name             string          `json:"name"`
	UnitPriceUSD     decimal.Decimal `json:"unit_price_usd"`
	ChangePercent24h decimal.Decimal `json:"change_percent_24h"`
	Supply           decimal.Decimal `json:"supply"`
	Volume24hUSD     decimal.Decimal `json:"volume_24h_usd"`
	MarketCapUSD     decimal.Decimal `json:"market_cap_usd"`
	Timestamp        time.Time       `json:"timestamp"`
}

// PriceOracle supplies current and historical prices for coin symbols.
// Implementations must honor context cancellation: a stalled feed is
// reported as ErrPriceUnavailable, never waited on indefinitely.
type PriceOracle interface {
	// GetPrice returns the current price point for a coin symbol.
	GetPrice(ctx context.Context, symbol string) (*PricePoint, error)

	// GetHistory returns historical price points for the given period,
	// oldest first.
	GetHistory(ctx context.Context, symbol string, period HistoryPeriod) ([]PricePoint, error)

	// ListSymbols returns price points for all known coin symbols.
	ListSymbols(ctx context.Context) ([]PricePoint, error)
}
