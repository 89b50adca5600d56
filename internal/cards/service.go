package cards

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/greenpay/greenpay/internal/account"
	"github.com/greenpay/greenpay/internal/notification"
)

// Service provisions and manages virtual cards. An active card is the
// payment instrument gating outbound transaction types.
type Service struct {
	repo     Repository
	accounts account.Store
	issuer   Issuer
	emitter  *notification.Emitter
}

// NewService builds a card service. A nil issuer defaults to the simulated one.
func NewService(repo Repository, accounts account.Store, issuer Issuer, emitter *notification.Emitter) *Service {
	if issuer == nil {
		issuer = StaticIssuer{}
	}
	return &Service{repo: repo, accounts: accounts, issuer: issuer, emitter: emitter}
}

// IssueInput captures user-provided card options.
type IssueInput struct {
	AccountID string
	Currency  string
	Label     string
}

// Issue provisions a card for a verified account and marks the account as
// holding an active instrument.
func (s *Service) Issue(ctx context.Context, input IssueInput) (Card, error) {
	acct, err := s.accounts.Get(ctx, input.AccountID)
	if err != nil {
		return Card{}, err
	}
	if acct.KYCStatus != account.KYCVerified {
		return Card{}, ErrKYCRequired
	}
	if _, err := s.repo.GetByAccount(ctx, input.AccountID); err == nil {
		return Card{}, ErrCardExists
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	issued, err := s.issuer.IssueCard(ctx, IssueRequest{
		AccountID: input.AccountID,
		Currency:  currency,
		Label:     input.Label,
	})
	if err != nil {
		return Card{}, err
	}

	card := Card{
		ID:          uuid.NewString(),
		AccountID:   input.AccountID,
		ProviderRef: issued.ProviderRef,
		Label:       input.Label,
		Currency:    currency,
		Last4:       issued.Last4,
		ExpMonth:    issued.ExpMonth,
		ExpYear:     issued.ExpYear,
		Status:      StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, card); err != nil {
		return Card{}, err
	}
	if err := s.accounts.SetHasCard(ctx, input.AccountID, true); err != nil {
		return Card{}, err
	}

	s.emitter.Notify(ctx, acct.Phone, "Card issued",
		"Your virtual card ending "+card.Last4+" is active", notification.KindSecurity)
	return card, nil
}

// GetForAccount returns the account's card.
func (s *Service) GetForAccount(ctx context.Context, accountID string) (Card, error) {
	return s.repo.GetByAccount(ctx, accountID)
}

// SetFrozen freezes or unfreezes a card. A frozen card clears the account's
// active-instrument flag, blocking outbound transaction types.
func (s *Service) SetFrozen(ctx context.Context, accountID string, frozen bool) (Card, error) {
	card, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return Card{}, err
	}

	if err := s.issuer.SetCardState(ctx, card.ProviderRef, frozen); err != nil {
		return Card{}, err
	}

	status := StatusActive
	if frozen {
		status = StatusFrozen
	}
	if err := s.repo.SetStatus(ctx, card.ID, status); err != nil {
		return Card{}, err
	}
	if err := s.accounts.SetHasCard(ctx, accountID, !frozen); err != nil {
		return Card{}, err
	}
	card.Status = status
	return card, nil
}
