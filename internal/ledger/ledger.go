package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount rejects non-positive amounts before any mutation.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidType rejects unknown transaction types before any mutation.
	ErrInvalidType = errors.New("unknown transaction type")

	// ErrPreconditionFailed indicates the account lacks completed KYC or an
	// active card for the requested transaction type.
	ErrPreconditionFailed = errors.New("account preconditions not met")

	// ErrInvalidTransition indicates an attempt to move a transaction out of
	// a terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound indicates the transaction id is unknown.
	ErrNotFound = errors.New("transaction not found")
)

// Type enumerates the monetary events the ledger records.
type Type string

const (
	TypeSend         Type = "send"
	TypeReceive      Type = "receive"
	TypeDeposit      Type = "deposit"
	TypeWithdraw     Type = "withdraw"
	TypeExchange     Type = "exchange"
	TypeCardPurchase Type = "card_purchase"
)

// Valid reports whether t is a known transaction type.
func (t Type) Valid() bool {
	switch t {
	case TypeSend, TypeReceive, TypeDeposit, TypeWithdraw, TypeExchange, TypeCardPurchase:
		return true
	}
	return false
}

// Status enumerates the transaction lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a transaction in status s may move to next.
// Only in-flight statuses may move, and only into a terminal status.
func (s Status) CanTransitionTo(next Status) bool {
	return !s.Terminal() && next.Terminal()
}

// RecipientDetails is a denormalized counterparty snapshot. Counterparties
// are frequently not platform accounts, so no foreign key exists.
type RecipientDetails struct {
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	BankName    string `json:"bank_name,omitempty"`
	BankAccount string `json:"bank_account,omitempty"`
}

// ConversionMetadata records the outcome of a cross-currency operation.
type ConversionMetadata struct {
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	TargetCurrency  string          `json:"target_currency"`
}

// Transaction is one monetary event tied to exactly one account. Type,
// currency and amount are fixed at creation; only Status, CompletedAt and
// administrative overrides mutate afterwards.
type Transaction struct {
	ID          string
	AccountID   string
	Type        Type
	Amount      decimal.Decimal
	Currency    string
	Fee         decimal.Decimal
	Rate        *decimal.Decimal
	Status      Status
	Recipient   *RecipientDetails
	Description string
	Conversion  *ConversionMetadata
	CreatedAt   time.Time
	CompletedAt *time.Time
	SettleAt    *time.Time
}

// Store persists transactions and applies the paired balance movement
// atomically with the record write.
type Store interface {
	// Create persists the transaction. A non-zero balanceDelta is applied to
	// the owning account in the same atomic unit; if the adjustment is
	// rejected no record is written.
	Create(ctx context.Context, txn Transaction, balanceDelta decimal.Decimal) (decimal.Decimal, error)
	Get(ctx context.Context, id string) (Transaction, error)
	// ListByAccount returns the account's transactions newest first.
	ListByAccount(ctx context.Context, accountID string) ([]Transaction, error)
	// UpdateStatus applies a lifecycle transition, stamping CompletedAt when
	// the new status is completed. A non-zero balanceDelta is applied to the
	// owning account in the same atomic unit, so a refund cannot commit
	// without its status write or vice versa. Terminal states are frozen.
	UpdateStatus(ctx context.Context, id string, status Status, balanceDelta decimal.Decimal) (Transaction, error)
	// DueForSettlement returns processing transactions whose settle-at time
	// has passed.
	DueForSettlement(ctx context.Context, now time.Time) ([]Transaction, error)
	// CountAwaitingSettlement reports how many transactions still carry a
	// future or overdue settlement.
	CountAwaitingSettlement(ctx context.Context) (int64, error)
}
