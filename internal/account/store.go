package account

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the account id is unknown.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientFunds occurs when a deduction would drive the stored
	// balance below zero. Balance mutations are rejected atomically rather
	// than stored negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountExists indicates a create collided with an existing id.
	ErrAccountExists = errors.New("account already exists")
)

// Store is the single source of truth for per-account balances and
// verification flags. Implementations must serialize concurrent balance
// mutations on the same account.
type Store interface {
	Create(ctx context.Context, acct Account) error
	Get(ctx context.Context, id string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	GetBalance(ctx context.Context, id string) (decimal.Decimal, error)
	// AdjustBalance applies a signed delta and returns the resulting balance.
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
	SetKYCStatus(ctx context.Context, id string, status KYCStatus) error
	SetHasCard(ctx context.Context, id string, hasCard bool) error
}
