// Package pricecache wraps a domain.PriceOracle with a short-TTL Redis
// read-through cache. It only serves reads that tolerate slightly stale
// data (portfolio valuation, coin listings); the trade engine still sees
// one consistent price per trade because it fetches exactly once before
// the mutation.
package pricecache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

const (
	priceKeyPrefix = "price:"
	symbolsKey     = "symbols"

	// DefaultTTL keeps cached prices fresh enough for display while
	// shielding the feed from one request per page render.
	DefaultTTL = 10 * time.Second
)

// CachedOracle decorates a PriceOracle with Redis caching
type CachedOracle struct {
	next domain.PriceOracle
	rdb  *redis.Client
	ttl  time.Duration
	log  logrus.FieldLogger
}

// New creates a new CachedOracle around next
func New(next domain.PriceOracle, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedOracle {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedOracle{next: next, rdb: rdb, ttl: ttl, log: log}
}

// GetPrice serves from cache when possible, falling through to the feed.
// Cache failures degrade to a direct feed call; they never fail the lookup.
func (c *CachedOracle) GetPrice(ctx context.Context, symbol string) (*domain.PricePoint, error) {
	key := priceKeyPrefix + symbol

	if payload, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var point domain.PricePoint
		if err := json.Unmarshal(payload, &point); err == nil {
			return &point, nil
		}
	}

	point, err := c.next.GetPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, point)
	return point, nil
}

// GetHistory is a passthrough: history queries are chart loads, not a
// per-render hot path.
func (c *CachedOracle) GetHistory(ctx context.Context, symbol string, period domain.HistoryPeriod) ([]domain.PricePoint, error) {
	return c.next.GetHistory(ctx, symbol, period)
}

// ListSymbols serves the full asset list from cache when possible
func (c *CachedOracle) ListSymbols(ctx context.Context) ([]domain.PricePoint, error) {
	if payload, err := c.rdb.Get(ctx, symbolsKey).Bytes(); err == nil {
		var points []domain.PricePoint
		if err := json.Unmarshal(payload, &points); err == nil {
			return points, nil
		}
	}

	points, err := c.next.ListSymbols(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, symbolsKey, points)
	return points, nil
}

func (c *CachedOracle) store(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("price cache write failed")
	}
}
