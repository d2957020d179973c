package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a simulator account in the domain layer.
// CashBalance is mutated only through the portfolio ledger; signup and
// account deletion are handled by external collaborators.
type User struct {
	ID          uuid.UUID
	Name        string
	Email       string
	CashBalance decimal.Decimal
	Version     int64 // optimistic concurrency token, incremented on every write
}

// Validate ensures the user adheres to domain rules
func (u *User) Validate() error {
	if u.Name == "" {
		return errors.New("user name cannot be empty")
	}

	// Cash can reach zero but never go below it
	if u.CashBalance.IsNegative() {
		return errors.New("cash balance cannot be negative")
	}

	return nil
}
