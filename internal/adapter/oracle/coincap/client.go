// Package coincap implements domain.PriceOracle against the CoinCap REST
// API. Coin symbols are CoinCap asset identifiers ("bitcoin", "ethereum"),
// the same identifiers the trading UI navigates by.
package coincap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

const (
	// DefaultBaseURL is the public CoinCap v2 endpoint
	DefaultBaseURL = "https://api.coincap.io/v2"

	defaultTimeout = 10 * time.Second
)

// history intervals per UI period: today in minute candles, this month in
// hourly candles, this year in daily candles
var intervals = map[domain.HistoryPeriod]string{
	domain.PeriodIntraday: "m1",
	domain.PeriodMonthly:  "h1",
	domain.PeriodYearly:   "d1",
}

// Client is a CoinCap-backed price oracle
type Client struct {
	http *resty.Client
}

// NewClient creates a new CoinCap client. An empty baseURL selects the
// public API.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Accept", "application/json")

	return &Client{http: client}
}

type assetData struct {
	ID                string `json:"id"`
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Supply            string `json:"supply"`
	MarketCapUsd      string `json:"marketCapUsd"`
	VolumeUsd24Hr     string `json:"volumeUsd24Hr"`
	PriceUsd          string `json:"priceUsd"`
	ChangePercent24Hr string `json:"changePercent24Hr"`
}

type assetResponse struct {
	Data      assetData `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

type assetsResponse struct {
	Data      []assetData `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

type historyPoint struct {
	PriceUsd string `json:"priceUsd"`
	Time     int64  `json:"time"`
}

type historyResponse struct {
	Data []historyPoint `json:"data"`
}

// GetPrice returns the current price point for a coin symbol
func (c *Client) GetPrice(ctx context.Context, symbol string) (*domain.PricePoint, error) {
	var out assetResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/assets/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: feed returned %d", domain.ErrPriceUnavailable, symbol, resp.StatusCode())
	}

	point, err := toPricePoint(out.Data, out.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, symbol, err)
	}

	return point, nil
}

// GetHistory returns historical price points for the given period, oldest first
func (c *Client) GetHistory(ctx context.Context, symbol string, period domain.HistoryPeriod) ([]domain.PricePoint, error) {
	interval, ok := intervals[period]
	if !ok {
		return nil, fmt.Errorf("%w: unknown history period %q", domain.ErrPriceUnavailable, period)
	}

	var out historyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("interval", interval).
		SetResult(&out).
		Get("/assets/" + symbol + "/history")
	if err != nil {
		return nil, fmt.Errorf("%w: %s history: %v", domain.ErrPriceUnavailable, symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s history: feed returned %d", domain.ErrPriceUnavailable, symbol, resp.StatusCode())
	}

	points := make([]domain.PricePoint, 0, len(out.Data))
	for _, hp := range out.Data {
		price, err := decimal.NewFromString(hp.PriceUsd)
		if err != nil {
			return nil, fmt.Errorf("%w: %s history: bad price %q", domain.ErrPriceUnavailable, symbol, hp.PriceUsd)
		}
		points = append(points, domain.PricePoint{
			CoinSymbol:   symbol,
			UnitPriceUSD: price,
			Timestamp:    time.UnixMilli(hp.Time).UTC(),
		})
	}

	return points, nil
}

// ListSymbols returns price points for all assets known to the feed
func (c *Client) ListSymbols(ctx context.Context) ([]domain.PricePoint, error) {
	var out assetsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/assets")
	if err != nil {
		return nil, fmt.Errorf("%w: assets: %v", domain.ErrPriceUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: assets: feed returned %d", domain.ErrPriceUnavailable, resp.StatusCode())
	}

	points := make([]domain.PricePoint, 0, len(out.Data))
	for _, data := range out.Data {
		point, err := toPricePoint(data, out.Timestamp)
		if err != nil {
			// One malformed asset should not hide the rest of the list
			continue
		}
		points = append(points, *point)
	}

	return points, nil
}

func toPricePoint(data assetData, timestampMs int64) (*domain.PricePoint, error) {
	price, err := decimal.NewFromString(data.PriceUsd)
	if err != nil {
		return nil, fmt.Errorf("bad priceUsd %q", data.PriceUsd)
	}

	point := &domain.PricePoint{
		CoinSymbol:       data.ID,
		Name:             data.Name,
		UnitPriceUSD:     price,
		ChangePercent24h: parseOrZero(data.ChangePercent24Hr),
		Supply:           parseOrZero(data.Supply),
		Volume24hUSD:     parseOrZero(data.VolumeUsd24Hr),
		MarketCapUSD:     parseOrZero(data.MarketCapUsd),
		Timestamp:        time.UnixMilli(timestampMs).UTC(),
	}

	return point, nil
}

// parseOrZero tolerates the feed's occasional null metadata fields;
// only the price itself is load-bearing for trades.
func parseOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
