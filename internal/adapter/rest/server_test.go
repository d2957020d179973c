package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/portfolio"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/trade"
)

const testToken = "test-token"

// stubEngine returns a canned receipt or error and captures the order
type stubEngine struct {
	receipt *trade.TradeReceipt
	err     error
	order   *domain.Order
}

func (s *stubEngine) Execute(_ context.Context, _ uuid.UUID, order *domain.Order) (*trade.TradeReceipt, error) {
	s.order = order
	if s.err != nil {
		return nil, s.err
	}
	return s.receipt, nil
}

type stubPortfolio struct {
	snapshot *portfolio.Snapshot
	records  []*domain.PositionRecord
	results  []portfolio.ReconciliationResult
	err      error
}

func (s *stubPortfolio) GetPortfolio(_ context.Context, _ uuid.UUID) (*portfolio.Snapshot, error) {
	return s.snapshot, s.err
}

func (s *stubPortfolio) GetHistory(_ context.Context, _ uuid.UUID, _, _ int) ([]*domain.PositionRecord, error) {
	return s.records, s.err
}

func (s *stubPortfolio) Reconcile(_ context.Context, _ uuid.UUID) ([]portfolio.ReconciliationResult, error) {
	return s.results, s.err
}

type stubWatchlist struct {
	entries []*domain.WatchlistEntry
	entry   *domain.WatchlistEntry
	err     error
	removed uuid.UUID
}

func (s *stubWatchlist) List(_ context.Context, _ uuid.UUID) ([]*domain.WatchlistEntry, error) {
	return s.entries, s.err
}

func (s *stubWatchlist) Add(_ context.Context, _ uuid.UUID, symbol, name string) (*domain.WatchlistEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entry, nil
}

func (s *stubWatchlist) Remove(_ context.Context, id uuid.UUID) error {
	s.removed = id
	return s.err
}

type stubOracle struct {
	point   *domain.PricePoint
	points  []domain.PricePoint
	history []domain.PricePoint
	err     error
}

func (s *stubOracle) GetPrice(_ context.Context, _ string) (*domain.PricePoint, error) {
	return s.point, s.err
}

func (s *stubOracle) GetHistory(_ context.Context, _ string, _ domain.HistoryPeriod) ([]domain.PricePoint, error) {
	return s.history, s.err
}

func (s *stubOracle) ListSymbols(_ context.Context) ([]domain.PricePoint, error) {
	return s.points, s.err
}

type serverFixture struct {
	router    *gin.Engine
	engine    *stubEngine
	portfolio *stubPortfolio
	watchlist *stubWatchlist
	oracle    *stubOracle
	userID    uuid.UUID
}

func newServerFixture() *serverFixture {
	gin.SetMode(gin.TestMode)
	log, _ := logtest.NewNullLogger()

	f := &serverFixture{
		engine:    &stubEngine{},
		portfolio: &stubPortfolio{},
		watchlist: &stubWatchlist{},
		oracle:    &stubOracle{},
		userID:    uuid.New(),
	}
	server := NewServer(f.engine, f.portfolio, f.watchlist, f.oracle, log, testToken)
	f.router = server.Router()
	return f
}

func (f *serverFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("X-User-ID", f.userID.String())
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestSubmitOrder(t *testing.T) {
	f := newServerFixture()
	f.engine.receipt = &trade.TradeReceipt{
		Kind:        domain.OrderKindBuy,
		CoinSymbol:  "bitcoin",
		Quantity:    decimal.RequireFromString("4"),
		CashBalance: decimal.RequireFromString("800"),
	}

	w := f.do(http.MethodPost, "/orders", gin.H{
		"kind":        "BUY",
		"coin_symbol": "bitcoin",
		"cash_amount": "200",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, f.engine.order)
	assert.Equal(t, domain.OrderKindBuy, f.engine.order.Kind)
	require.NotNil(t, f.engine.order.CashAmount)
	assert.True(t, f.engine.order.CashAmount.Equal(decimal.RequireFromString("200")))

	var receipt trade.TradeReceipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.True(t, receipt.CashBalance.Equal(decimal.RequireFromString("800")))
}

func TestSubmitOrder_MalformedAmount(t *testing.T) {
	f := newServerFixture()

	w := f.do(http.MethodPost, "/orders", gin.H{
		"kind":        "BUY",
		"coin_symbol": "bitcoin",
		"cash_amount": "two hundred",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, f.engine.order)
}

func TestSubmitOrder_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid order", domain.ErrInvalidOrder, http.StatusBadRequest, "invalid_order"},
		{"price unavailable", domain.ErrPriceUnavailable, http.StatusServiceUnavailable, "price_unavailable"},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
		{"insufficient quantity", domain.ErrInsufficientQuantity, http.StatusUnprocessableEntity, "insufficient_quantity"},
		{"no such holding", domain.ErrNoSuchHolding, http.StatusUnprocessableEntity, "no_such_holding"},
		{"ledger conflict", domain.ErrLedgerConflict, http.StatusConflict, "ledger_conflict"},
		{"history write failed", domain.ErrHistoryWriteFailed, http.StatusInternalServerError, "history_write_failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newServerFixture()
			f.engine.err = tc.err

			w := f.do(http.MethodPost, "/orders", gin.H{
				"kind":        "BUY",
				"coin_symbol": "bitcoin",
				"cash_amount": "200",
			})

			assert.Equal(t, tc.wantStatus, w.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Code)
		})
	}
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	f := newServerFixture()

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_RejectsWrongToken(t *testing.T) {
	f := newServerFixture()

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResolveUser_RejectsMissingHeader(t *testing.T) {
	f := newServerFixture()

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPortfolio(t *testing.T) {
	f := newServerFixture()
	f.portfolio.snapshot = &portfolio.Snapshot{
		CashBalance:   decimal.RequireFromString("800"),
		TotalValueUSD: decimal.RequireFromString("1000"),
		Holdings: []portfolio.HoldingView{
			{CoinSymbol: "bitcoin", Quantity: decimal.RequireFromString("4")},
		},
	}

	w := f.do(http.MethodGet, "/portfolio", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var snapshot portfolio.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.TotalValueUSD.Equal(decimal.RequireFromString("1000")))
	require.Len(t, snapshot.Holdings, 1)
}

func TestGetReconciliation(t *testing.T) {
	f := newServerFixture()
	f.portfolio.results = []portfolio.ReconciliationResult{
		{CoinSymbol: "bitcoin", Consistent: true},
	}

	w := f.do(http.MethodGet, "/portfolio/reconciliation", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"consistent":true`)
}

func TestGetPositions(t *testing.T) {
	f := newServerFixture()
	f.portfolio.records = []*domain.PositionRecord{
		{CoinSymbol: "bitcoin", SignedQuantity: decimal.RequireFromString("4")},
	}

	w := f.do(http.MethodGet, "/positions?limit=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bitcoin"`)
}

func TestGetCoin(t *testing.T) {
	f := newServerFixture()
	f.oracle.point = &domain.PricePoint{
		CoinSymbol:   "bitcoin",
		Name:         "Bitcoin",
		UnitPriceUSD: decimal.RequireFromString("70000"),
	}

	w := f.do(http.MethodGet, "/coins/bitcoin", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Bitcoin"`)
}

func TestGetCoinHistory_InvalidPeriod(t *testing.T) {
	f := newServerFixture()

	w := f.do(http.MethodGet, "/coins/bitcoin/history?period=weekly", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_period")
}

func TestGetCoinHistory(t *testing.T) {
	f := newServerFixture()
	f.oracle.history = []domain.PricePoint{
		{CoinSymbol: "bitcoin", UnitPriceUSD: decimal.RequireFromString("69000")},
	}

	w := f.do(http.MethodGet, "/coins/bitcoin/history?period=monthly", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"69000"`)
}

func TestWatchlistRoutes(t *testing.T) {
	f := newServerFixture()
	entryID := uuid.New()
	f.watchlist.entry = &domain.WatchlistEntry{
		ID:         entryID,
		UserID:     f.userID,
		CoinSymbol: "bitcoin",
		CoinName:   "Bitcoin",
	}
	f.watchlist.entries = []*domain.WatchlistEntry{f.watchlist.entry}

	w := f.do(http.MethodPost, "/watchlists", gin.H{"coin_symbol": "bitcoin", "coin_name": "Bitcoin"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodGet, "/watchlists", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bitcoin"`)

	w = f.do(http.MethodDelete, "/watchlists/"+entryID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, entryID, f.watchlist.removed)
}

func TestRemoveWatchlist_BadID(t *testing.T) {
	f := newServerFixture()

	w := f.do(http.MethodDelete, "/watchlists/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
