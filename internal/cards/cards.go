package cards

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCardNotFound indicates the card id is unknown.
	ErrCardNotFound = errors.New("card not found")
	// ErrCardExists indicates the account already holds an active card.
	ErrCardExists = errors.New("account already has a card")
	// ErrKYCRequired indicates card issuance needs completed verification.
	ErrKYCRequired = errors.New("verified KYC required to issue a card")
)

const (
	StatusActive = "active"
	StatusFrozen = "frozen"
)

// Card is a provisioned virtual spending credential tied to an account.
type Card struct {
	ID          string
	AccountID   string
	ProviderRef string
	Label       string
	Currency    string
	Last4       string
	ExpMonth    int
	ExpYear     int
	Status      string
	CreatedAt   time.Time
}

// Repository persists card metadata.
type Repository interface {
	Create(ctx context.Context, card Card) error
	Get(ctx context.Context, id string) (Card, error)
	GetByAccount(ctx context.Context, accountID string) (Card, error)
	SetStatus(ctx context.Context, id, status string) error
}
