package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// HoldingView is one holding enriched with its live valuation
type HoldingView struct {
	CoinSymbol     string          `json:"coin_symbol"`
	CoinName       string          `json:"coin_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPriceUSD   decimal.Decimal `json:"unit_price_usd"`
	MarketValueUSD decimal.Decimal `json:"market_value_usd"`
	PriceAvailable bool            `json:"price_available"`
}

// Snapshot is the portfolio view returned to the UI: cash plus holdings
// valued at current oracle prices.
type Snapshot struct {
	CashBalance   decimal.Decimal `json:"cash_balance"`
	Holdings      []HoldingView   `json:"holdings"`
	TotalValueUSD decimal.Decimal `json:"total_value_usd"`
}

// ReconciliationResult compares a holding's quantity against the sum of its
// position records. The two must agree for every symbol; a mismatch means
// the audit trail and the ledger have diverged and needs investigation.
type ReconciliationResult struct {
	CoinSymbol       string          `json:"coin_symbol"`
	HoldingQuantity  decimal.Decimal `json:"holding_quantity"`
	RecordedQuantity decimal.Decimal `json:"recorded_quantity"`
	Consistent       bool            `json:"consistent"`
}

// Service handles portfolio read operations: snapshots, position history
// and the reconciliation check.
type Service struct {
	Repo      domain.PortfolioRepository
	Positions domain.PositionRepository
	Oracle    domain.PriceOracle
}

// NewService creates a new portfolio Service instance
func NewService(repo domain.PortfolioRepository, positions domain.PositionRepository, oracle domain.PriceOracle) *Service {
	return &Service{
		Repo:      repo,
		Positions: positions,
		Oracle:    oracle,
	}
}

// GetPortfolio returns the user's cash balance and holdings valued at
// current prices.
// Logic:
//  1. Fetch the user (cash balance)
//  2. Fetch all holdings
//  3. Value each holding at the oracle's current price; a failed price
//     lookup degrades that holding to quantity-only instead of failing the
//     whole snapshot
func (s *Service) GetPortfolio(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	user, err := s.Repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	holdings, err := s.Repo.ListHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	snapshot := &Snapshot{
		CashBalance:   user.CashBalance,
		Holdings:      make([]HoldingView, 0, len(holdings)),
		TotalValueUSD: user.CashBalance,
	}

	for _, holding := range holdings {
		view := HoldingView{
			CoinSymbol: holding.CoinSymbol,
			CoinName:   holding.CoinName,
			Quantity:   holding.Quantity,
		}

		price, err := s.Oracle.GetPrice(ctx, holding.CoinSymbol)
		if err == nil {
			view.UnitPriceUSD = price.UnitPriceUSD
			view.MarketValueUSD = holding.Quantity.Mul(price.UnitPriceUSD).Round(2)
			view.PriceAvailable = true
			snapshot.TotalValueUSD = snapshot.TotalValueUSD.Add(view.MarketValueUSD)
		}

		snapshot.Holdings = append(snapshot.Holdings, view)
	}

	return snapshot, nil
}

// GetHistory returns the user's position records, newest first
func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.PositionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.Positions.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list position records: %w", err)
	}

	return records, nil
}

// Reconcile verifies, per holding, that the sum of recorded signed
// quantities equals the holding's current quantity.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID) ([]ReconciliationResult, error) {
	holdings, err := s.Repo.ListHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	results := make([]ReconciliationResult, 0, len(holdings))
	for _, holding := range holdings {
		recorded, err := s.Positions.SumQuantityBySymbol(ctx, userID, holding.CoinSymbol)
		if err != nil {
			return nil, fmt.Errorf("failed to sum records for %s: %w", holding.CoinSymbol, err)
		}

		results = append(results, ReconciliationResult{
			CoinSymbol:       holding.CoinSymbol,
			HoldingQuantity:  holding.Quantity,
			RecordedQuantity: recorded,
			Consistent:       holding.Quantity.Equal(recorded),
		})
	}

	return results, nil
}
