// Package rest exposes the engine-facing HTTP API consumed by the trading
// UI. Session handling lives in front of this server; requests arrive with
// an API token and an already-resolved user ID.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/portfolio"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/trade"
)

// TradeExecutor submits orders to the trade engine
type TradeExecutor interface {
	Execute(ctx context.Context, userID uuid.UUID, order *domain.Order) (*trade.TradeReceipt, error)
}

// PortfolioReader serves portfolio snapshots, history and reconciliation
type PortfolioReader interface {
	GetPortfolio(ctx context.Context, userID uuid.UUID) (*portfolio.Snapshot, error)
	GetHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.PositionRecord, error)
	Reconcile(ctx context.Context, userID uuid.UUID) ([]portfolio.ReconciliationResult, error)
}

// WatchlistManager maintains per-user watchlists
type WatchlistManager interface {
	List(ctx context.Context, userID uuid.UUID) ([]*domain.WatchlistEntry, error)
	Add(ctx context.Context, userID uuid.UUID, symbol, name string) (*domain.WatchlistEntry, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// Server wires the usecase services into HTTP routes
type Server struct {
	Engine    TradeExecutor
	Portfolio PortfolioReader
	Watchlist WatchlistManager
	Oracle    domain.PriceOracle

	Log      logrus.FieldLogger
	APIToken string
}

// NewServer creates a new REST server instance
func NewServer(engine TradeExecutor, portfolioSvc PortfolioReader, watchlistSvc WatchlistManager, oracle domain.PriceOracle, log logrus.FieldLogger, apiToken string) *Server {
	return &Server{
		Engine:    engine,
		Portfolio: portfolioSvc,
		Watchlist: watchlistSvc,
		Oracle:    oracle,
		Log:       log,
		APIToken:  apiToken,
	}
}

// Router builds the gin engine with all routes and middleware attached
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(s.Log))

	// Coin data needs no user identity
	coins := router.Group("/coins", RequireAuth(s.APIToken))
	{
		coins.GET("", s.listCoins)
		coins.GET("/:symbol", s.getCoin)
		coins.GET("/:symbol/history", s.getCoinHistory)
	}

	authed := router.Group("/", RequireAuth(s.APIToken), ResolveUser())
	{
		authed.POST("/orders", s.submitOrder)
		authed.GET("/portfolio", s.getPortfolio)
		authed.GET("/portfolio/reconciliation", s.getReconciliation)
		authed.GET("/positions", s.getPositions)
		authed.GET("/watchlists", s.listWatchlist)
		authed.POST("/watchlists", s.addWatchlist)
		authed.DELETE("/watchlists/:id", s.removeWatchlist)
	}

	return router
}

// orderRequest is the JSON body of POST /orders. Amounts travel as strings
// so no precision is lost in JSON numbers.
type orderRequest struct {
	Kind             string `json:"kind" binding:"required"`
	CoinSymbol       string `json:"coin_symbol" binding:"required"`
	TargetCoinSymbol string `json:"target_coin_symbol"`
	CashAmount       string `json:"cash_amount"`
	Quantity         string `json:"quantity"`
}

func (s *Server) submitOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_order", err.Error())
		return
	}

	order, err := req.toDomain()
	if err != nil {
		s.respondMapped(c, err)
		return
	}

	receipt, err := s.Engine.Execute(c.Request.Context(), userID(c), order)
	if err != nil {
		s.respondMapped(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

func (req *orderRequest) toDomain() (*domain.Order, error) {
	order := &domain.Order{
		Kind:             domain.OrderKind(req.Kind),
		CoinSymbol:       req.CoinSymbol,
		TargetCoinSymbol: req.TargetCoinSymbol,
	}

	if req.CashAmount != "" {
		amount, err := decimal.NewFromString(req.CashAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid cash amount %q", domain.ErrInvalidOrder, req.CashAmount)
		}
		order.CashAmount = &amount
	}

	if req.Quantity != "" {
		quantity, err := decimal.NewFromString(req.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid quantity %q", domain.ErrInvalidOrder, req.Quantity)
		}
		order.Quantity = &quantity
	}

	return order, nil
}

func (s *Server) getPortfolio(c *gin.Context) {
	snapshot, err := s.Portfolio.GetPortfolio(c.Request.Context(), userID(c))
	if err != nil {
		s.respondMapped(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) getReconciliation(c *gin.Context) {
	results, err := s.Portfolio.Reconcile(c.Request.Context(), userID(c))
	if err != nil {
		s.respondMapped(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) getPositions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := s.Portfolio.GetHistory(c.Request.Context(), userID(c), limit, offset)
	if err != nil {
		s.respondMapped(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": records})
}

func (s *Server) listCoins(c *gin.Context) {
	points, err := s.Oracle.ListSymbols(c.Request.Context())
	if err != nil {
		s.respondMapped(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": points})
}

func (s *Server) getCoin(c *gin.Context) {
	point, err := s.Oracle.GetPrice(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.respondMapped(c, err)
		return
	}
	c.JSON(http.StatusOK, point)
}

func (s *Server) getCoinHistory(c *gin.Context) {
	period := domain.HistoryPeriod(c.DefaultQuery("period", string(domain.PeriodIntraday)))
	if !period.Valid() {
		respondError(c, http.StatusBadRequest, "invalid_period", "period must be intraday, monthly or yearly")
		return
	}

	points, err := s.Oracle.GetHistory(c.Request.Context(), c.Param("symbol"), period)
	if err != nil {
		s.respondMapped(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": points})
}

type watchlistRequest struct {
	CoinSymbol string `json:"coin_symbol" binding:"required"`
	CoinName   string `json:"coin_name"`
}

func (s *Server) listWatchlist(c *gin.Context) {
	entries, err := s.Watchlist.List(c.Request.Context(), userID(c))
	if err != nil {
		s.respondMapped(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": entries})
}

func (s *Server) addWatchlist(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entry, err := s.Watchlist.Add(c.Request.Context(), userID(c), req.CoinSymbol, req.CoinName)
	if err != nil {
		s.respondMapped(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) removeWatchlist(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "invalid watchlist entry id")
		return
	}

	if err := s.Watchlist.Remove(c.Request.Context(), id); err != nil {
		s.respondMapped(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
