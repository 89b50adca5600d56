package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYCStatus tracks identity-verification progress for an account.
type KYCStatus string

const (
	KYCPending   KYCStatus = "pending"
	KYCSubmitted KYCStatus = "submitted"
	KYCVerified  KYCStatus = "verified"
	KYCRejected  KYCStatus = "rejected"
)

// Account represents one user's spendable funds and verification state.
// The balance is currency-less at this layer; currency travels on each
// transaction.
type Account struct {
	ID        string
	Phone     string
	KYCStatus KYCStatus
	HasCard   bool
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// CanSend reports whether the account satisfies the preconditions for
// outbound transaction types: completed KYC plus an active card.
func (a Account) CanSend() bool {
	return a.KYCStatus == KYCVerified && a.HasCard
}
