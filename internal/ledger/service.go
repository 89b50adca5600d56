package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/greenpay/greenpay/internal/account"
	"github.com/greenpay/greenpay/internal/metrics"
	"github.com/greenpay/greenpay/internal/notification"
	"github.com/greenpay/greenpay/internal/rates"
)

var (
	sendFeeRate     = decimal.RequireFromString("0.02")
	exchangeFeeRate = decimal.RequireFromString("0.015")
	withdrawFee     = decimal.RequireFromString("2.99")
)

// Service creates, reads and transitions transactions. It is the only
// component that mutates account balances.
type Service struct {
	store       Store
	accounts    account.Store
	resolver    rates.Resolver
	emitter     *notification.Emitter
	settleDelay time.Duration
	logger      *slog.Logger
}

// NewService wires the ledger against its stores and collaborators.
func NewService(store Store, accounts account.Store, resolver rates.Resolver, emitter *notification.Emitter, settleDelay time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		accounts:    accounts,
		resolver:    resolver,
		emitter:     emitter,
		settleDelay: settleDelay,
		logger:      logger,
	}
}

// CreateInput captures the data needed to record a monetary event.
type CreateInput struct {
	AccountID      string
	Type           Type
	Amount         decimal.Decimal
	Currency       string
	TargetCurrency string
	Recipient      *RecipientDetails
	Description    string
}

// Create records a transaction and applies its balance movement. Outflows
// (send, withdraw, card_purchase) deduct amount plus fee at creation; a
// rejected deduction persists nothing.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transaction, error) {
	if !input.Type.Valid() {
		metrics.TransactionsRejected.WithLabelValues("invalid_type").Inc()
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidType, input.Type)
	}
	if !input.Amount.IsPositive() {
		metrics.TransactionsRejected.WithLabelValues("invalid_amount").Inc()
		return Transaction{}, ErrInvalidAmount
	}

	acct, err := s.accounts.Get(ctx, input.AccountID)
	if err != nil {
		metrics.TransactionsRejected.WithLabelValues("account_not_found").Inc()
		return Transaction{}, err
	}

	now := time.Now().UTC()
	txn := Transaction{
		ID:          uuid.NewString(),
		AccountID:   acct.ID,
		Type:        input.Type,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Fee:         decimal.Zero,
		Recipient:   input.Recipient,
		Description: input.Description,
		CreatedAt:   now,
	}

	var delta decimal.Decimal

	switch input.Type {
	case TypeSend:
		if !acct.CanSend() {
			metrics.TransactionsRejected.WithLabelValues("precondition").Inc()
			return Transaction{}, ErrPreconditionFailed
		}
		txn.Fee = input.Amount.Mul(sendFeeRate).Round(2)
		if input.TargetCurrency != "" && input.TargetCurrency != input.Currency {
			if err := s.applyConversion(ctx, &txn, input.TargetCurrency); err != nil {
				metrics.TransactionsRejected.WithLabelValues("rate_unavailable").Inc()
				return Transaction{}, err
			}
		}
		txn.Status = StatusProcessing
		settleAt := now.Add(s.settleDelay)
		txn.SettleAt = &settleAt
		delta = input.Amount.Add(txn.Fee).Neg()

	case TypeReceive, TypeDeposit:
		txn.Status = StatusCompleted
		txn.CompletedAt = &now
		delta = input.Amount

	case TypeExchange:
		if !acct.HasCard {
			metrics.TransactionsRejected.WithLabelValues("precondition").Inc()
			return Transaction{}, ErrPreconditionFailed
		}
		txn.Fee = input.Amount.Mul(exchangeFeeRate).Round(2)
		target := input.TargetCurrency
		if target == "" {
			target = input.Currency
		}
		if err := s.applyConversion(ctx, &txn, target); err != nil {
			metrics.TransactionsRejected.WithLabelValues("rate_unavailable").Inc()
			return Transaction{}, err
		}
		txn.Status = StatusCompleted
		txn.CompletedAt = &now

	case TypeWithdraw:
		txn.Fee = withdrawFee
		txn.Status = StatusPending
		delta = input.Amount.Add(txn.Fee).Neg()

	case TypeCardPurchase:
		if !acct.HasCard {
			metrics.TransactionsRejected.WithLabelValues("precondition").Inc()
			return Transaction{}, ErrPreconditionFailed
		}
		txn.Status = StatusCompleted
		txn.CompletedAt = &now
		delta = input.Amount.Neg()
	}

	if _, err := s.store.Create(ctx, txn, delta); err != nil {
		metrics.TransactionsRejected.WithLabelValues("balance").Inc()
		return Transaction{}, err
	}
	metrics.TransactionsCreated.WithLabelValues(string(input.Type)).Inc()

	s.notifyCreated(ctx, acct, txn)
	return txn, nil
}

func (s *Service) applyConversion(ctx context.Context, txn *Transaction, target string) error {
	rate, err := s.resolver.Rate(ctx, txn.Currency, target)
	if err != nil {
		return err
	}
	txn.Rate = &rate
	txn.Conversion = &ConversionMetadata{
		ConvertedAmount: txn.Amount.Mul(rate).Round(2),
		TargetCurrency:  target,
	}
	return nil
}

func (s *Service) notifyCreated(ctx context.Context, acct account.Account, txn Transaction) {
	var title, body string
	switch txn.Type {
	case TypeReceive, TypeDeposit:
		title = "Funds received"
		body = fmt.Sprintf("%s %s credited to your account", txn.Amount.StringFixed(2), txn.Currency)
	case TypeSend:
		title = "Transfer processing"
		body = fmt.Sprintf("Your transfer of %s %s is being processed", txn.Amount.StringFixed(2), txn.Currency)
	case TypeWithdraw:
		title = "Withdrawal requested"
		body = fmt.Sprintf("Your withdrawal of %s %s is pending", txn.Amount.StringFixed(2), txn.Currency)
	case TypeExchange:
		title = "Exchange completed"
		body = fmt.Sprintf("Exchanged %s %s to %s", txn.Amount.StringFixed(2), txn.Currency, txn.Conversion.TargetCurrency)
	case TypeCardPurchase:
		title = "Card purchase"
		body = fmt.Sprintf("Card purchase of %s %s completed", txn.Amount.StringFixed(2), txn.Currency)
	}
	s.emitter.Notify(ctx, acct.Phone, title, body, notification.KindTransaction)
}

// Get retrieves one transaction.
func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	return s.store.Get(ctx, id)
}

// ListForAccount returns the account's transactions newest first. A fresh
// call re-reads current state.
func (s *Service) ListForAccount(ctx context.Context, accountID string) ([]Transaction, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.ListByAccount(ctx, accountID)
}

// DueForSettlement lists processing transactions ready to complete.
func (s *Service) DueForSettlement(ctx context.Context, now time.Time) ([]Transaction, error) {
	return s.store.DueForSettlement(ctx, now)
}

// AwaitingSettlement reports outstanding settlement work.
func (s *Service) AwaitingSettlement(ctx context.Context) (int64, error) {
	return s.store.CountAwaitingSettlement(ctx)
}

// UpdateStatus applies a lifecycle transition (settlement or admin override)
// and notifies the account holder of terminal outcomes. Failing or cancelling
// an outflow refunds the amount and fee deducted at creation; the refund
// commits atomically with the status write.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Transaction, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}

	refund := decimal.Zero
	if status == StatusFailed || status == StatusCancelled {
		switch current.Type {
		case TypeSend, TypeWithdraw:
			refund = current.Amount.Add(current.Fee)
		}
	}

	txn, err := s.store.UpdateStatus(ctx, id, status, refund)
	if err != nil {
		return Transaction{}, err
	}

	acct, err := s.accounts.Get(ctx, txn.AccountID)
	if err != nil {
		s.logger.Warn("status notification skipped", "transaction_id", txn.ID, "error", err)
		return txn, nil
	}
	title := fmt.Sprintf("Transaction %s", txn.Status)
	body := fmt.Sprintf("Your %s of %s %s is now %s", txn.Type, txn.Amount.StringFixed(2), txn.Currency, txn.Status)
	s.emitter.Notify(ctx, acct.Phone, title, body, notification.KindTransaction)
	return txn, nil
}
