package domain

import "errors"

// Sentinel errors forming the trade error taxonomy.
// Callers match them with errors.Is; lower layers wrap them with context.
var (
	// ErrInvalidOrder indicates a malformed order (unknown kind, missing
	// symbol, zero/negative amount, or both amount sides populated).
	// Rejected before any ledger or oracle call.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrPriceUnavailable indicates the price oracle failed or timed out.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrInsufficientFunds indicates a buy whose cash amount exceeds the
	// user's cash balance at execution time.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientQuantity indicates a sell or convert whose quantity
	// exceeds the holding's quantity at execution time.
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// ErrNoSuchHolding indicates a sell or convert against a coin the user
	// does not hold.
	ErrNoSuchHolding = errors.New("no such holding")

	// ErrLedgerConflict indicates an optimistic version check failed on a
	// ledger write. Transient: the ledger retries internally and only
	// surfaces it when retries are exhausted.
	ErrLedgerConflict = errors.New("ledger write conflict")

	// ErrHistoryWriteFailed indicates the balance mutation committed but the
	// position record could not be made durable. Distinct from trade
	// failures so callers alert and reconcile instead of resubmitting.
	ErrHistoryWriteFailed = errors.New("position history write failed")

	// ErrNotFound indicates a missing record at the persistence boundary.
	ErrNotFound = errors.New("record not found")
)
