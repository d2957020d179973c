package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// maxWriteAttempts bounds the internal retry of optimistic write conflicts.
// Under the per-user lock a conflict only happens when another process
// writes the same rows, so one or two retries are enough in practice.
const maxWriteAttempts = 3

// UpdatedState is the portfolio state returned by a successful mutation,
// read back from the same values that were committed.
type UpdatedState struct {
	CashBalance   decimal.Decimal
	Holding       *domain.Holding
	TargetHolding *domain.Holding // populated by conversions only
}

// PortfolioLedger is the sole authority over a user's cash balance and
// holdings: every mutation passes through it. Each Apply* operation is an
// indivisible read-check-write — preconditions are re-checked from a fresh
// read inside a per-user critical section, never from a stale snapshot, so
// concurrent orders from the same user cannot interleave. Operations for
// different users proceed fully in parallel.
type PortfolioLedger struct {
	Repo domain.PortfolioRepository

	users *KeyedMutex
}

// NewPortfolioLedger creates a new PortfolioLedger instance
func NewPortfolioLedger(repo domain.PortfolioRepository) *PortfolioLedger {
	return &PortfolioLedger{
		Repo:  repo,
		users: NewKeyedMutex(),
	}
}

// LockUser serializes a caller-defined critical section against all other
// ledger operations for the same user. The trade engine uses it to keep
// validation, mutation, and history recording of one order contiguous.
// The returned function releases the lock.
func (l *PortfolioLedger) LockUser(userID uuid.UUID) (unlock func()) {
	return l.users.Lock("engine:" + userID.String())
}

// GetBalance returns the user's current cash balance
func (l *PortfolioLedger) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	user, err := l.Repo.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.CashBalance, nil
}

// GetHolding returns the user's holding for one coin symbol, or
// ErrNoSuchHolding if the user does not hold the coin.
func (l *PortfolioLedger) GetHolding(ctx context.Context, userID uuid.UUID, symbol string) (*domain.Holding, error) {
	holding, err := l.Repo.GetHolding(ctx, userID, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoSuchHolding, symbol)
		}
		return nil, err
	}
	return holding, nil
}

// ApplyBuy debits cashDelta from the user's cash balance and credits
// quantityDelta to the holding for symbol, creating the holding on the first
// buy. Fails with ErrInsufficientFunds if cashDelta exceeds the cash balance
// at execution time.
func (l *PortfolioLedger) ApplyBuy(ctx context.Context, userID uuid.UUID, symbol, coinName string, quantityDelta, cashDelta decimal.Decimal) (*UpdatedState, error) {
	unlock := l.users.Lock(userID.String())
	defer unlock()

	return l.withWriteRetry(ctx, func() (*UpdatedState, error) {
		user, err := l.Repo.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		// Precondition: cash covers the debit. Checked against the row we
		// are about to write, inside the critical section.
		if cashDelta.GreaterThan(user.CashBalance) {
			return nil, fmt.Errorf("%w: need %s, have %s",
				domain.ErrInsufficientFunds, cashDelta.StringFixed(2), user.CashBalance.StringFixed(2))
		}

		holding, err := l.Repo.GetHolding(ctx, userID, symbol)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			// First buy of this symbol: create the holding
			holding = &domain.Holding{
				ID:         uuid.New(),
				UserID:     userID,
				CoinSymbol: symbol,
				CoinName:   coinName,
				Quantity:   decimal.Zero,
			}
		}

		user.CashBalance = user.CashBalance.Sub(cashDelta)
		holding.Quantity = holding.Quantity.Add(quantityDelta)

		if err := l.saveTrade(ctx, user, holding); err != nil {
			return nil, err
		}

		return &UpdatedState{CashBalance: user.CashBalance, Holding: holding}, nil
	})
}

// ApplySell credits cashDelta to the user's cash balance and debits
// quantityDelta from the holding for symbol. Fails with ErrNoSuchHolding if
// the holding does not exist and ErrInsufficientQuantity if it cannot cover
// the debit.
func (l *PortfolioLedger) ApplySell(ctx context.Context, userID uuid.UUID, symbol string, quantityDelta, cashDelta decimal.Decimal) (*UpdatedState, error) {
	unlock := l.users.Lock(userID.String())
	defer unlock()

	return l.withWriteRetry(ctx, func() (*UpdatedState, error) {
		user, err := l.Repo.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		holding, err := l.Repo.GetHolding(ctx, userID, symbol)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrNoSuchHolding, symbol)
			}
			return nil, err
		}

		if quantityDelta.GreaterThan(holding.Quantity) {
			return nil, fmt.Errorf("%w: need %s %s, have %s",
				domain.ErrInsufficientQuantity, quantityDelta.String(), symbol, holding.Quantity.String())
		}

		user.CashBalance = user.CashBalance.Add(cashDelta)
		holding.Quantity = holding.Quantity.Sub(quantityDelta)

		if err := l.saveTrade(ctx, user, holding); err != nil {
			return nil, err
		}

		return &UpdatedState{CashBalance: user.CashBalance, Holding: holding}, nil
	})
}

// ApplyConvert debits fromQty from the fromSymbol holding and credits toQty
// to the toSymbol holding, creating the target holding if needed. No cash
// changes hands. Fails with ErrNoSuchHolding or ErrInsufficientQuantity on
// the source side.
func (l *PortfolioLedger) ApplyConvert(ctx context.Context, userID uuid.UUID, fromSymbol, toSymbol, toName string, fromQty, toQty decimal.Decimal) (*UpdatedState, error) {
	unlock := l.users.Lock(userID.String())
	defer unlock()

	return l.withWriteRetry(ctx, func() (*UpdatedState, error) {
		user, err := l.Repo.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		fromHolding, err := l.Repo.GetHolding(ctx, userID, fromSymbol)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrNoSuchHolding, fromSymbol)
			}
			return nil, err
		}

		if fromQty.GreaterThan(fromHolding.Quantity) {
			return nil, fmt.Errorf("%w: need %s %s, have %s",
				domain.ErrInsufficientQuantity, fromQty.String(), fromSymbol, fromHolding.Quantity.String())
		}

		toHolding, err := l.Repo.GetHolding(ctx, userID, toSymbol)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			toHolding = &domain.Holding{
				ID:         uuid.New(),
				UserID:     userID,
				CoinSymbol: toSymbol,
				CoinName:   toName,
				Quantity:   decimal.Zero,
			}
		}

		fromHolding.Quantity = fromHolding.Quantity.Sub(fromQty)
		toHolding.Quantity = toHolding.Quantity.Add(toQty)

		if err := l.saveTrade(ctx, user, fromHolding, toHolding); err != nil {
			return nil, err
		}

		return &UpdatedState{
			CashBalance:   user.CashBalance,
			Holding:       fromHolding,
			TargetHolding: toHolding,
		}, nil
	})
}

// saveTrade validates the mutated rows and persists them in one transaction
func (l *PortfolioLedger) saveTrade(ctx context.Context, user *domain.User, holdings ...*domain.Holding) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("ledger produced invalid user state: %w", err)
	}
	for _, h := range holdings {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("ledger produced invalid holding state: %w", err)
		}
	}
	return l.Repo.SaveTrade(ctx, user, holdings)
}

// withWriteRetry runs fn, retrying from a fresh read when the repository
// reports an optimistic version conflict. The financial computation inside
// fn is re-executed on every attempt, so the mutation itself is applied at
// most once. Conflicts are only surfaced after the attempt budget runs out.
func (l *PortfolioLedger) withWriteRetry(ctx context.Context, fn func() (*UpdatedState, error)) (*UpdatedState, error) {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}

		state, err := fn()
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, domain.ErrLedgerConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
