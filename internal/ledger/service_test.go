package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/greenpay/greenpay/internal/account"
	"github.com/greenpay/greenpay/internal/logging"
	"github.com/greenpay/greenpay/internal/notification"
	"github.com/greenpay/greenpay/internal/rates"
)

type stubResolver struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (r *stubResolver) Rate(_ context.Context, base, target string) (decimal.Decimal, error) {
	r.calls++
	if base == target {
		return decimal.NewFromInt(1), nil
	}
	if r.err != nil {
		return decimal.Decimal{}, r.err
	}
	return r.rate, nil
}

func (r *stubResolver) Rates(ctx context.Context, base string, targets []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(targets))
	for _, target := range targets {
		rate, err := r.Rate(ctx, base, target)
		if err != nil {
			return nil, err
		}
		out[target] = rate
	}
	return out, nil
}

type testNotifier struct {
	messages []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

func newTestService(resolver rates.Resolver) (*Service, account.Store, *testNotifier) {
	accounts := account.NewMemoryStore()
	store := NewMemoryStore(accounts)
	notifier := &testNotifier{}
	emitter := notification.NewEmitter(notifier, logging.Discard())
	svc := NewService(store, accounts, resolver, emitter, 0, logging.Discard())
	return svc, accounts, notifier
}

func seedAccount(t *testing.T, accounts account.Store, kyc account.KYCStatus, hasCard bool, balance string) account.Account {
	t.Helper()
	acct := account.Account{
		ID:        uuid.NewString(),
		Phone:     "+15550001111",
		KYCStatus: kyc,
		HasCard:   hasCard,
		Balance:   decimal.Zero,
	}
	if err := accounts.Create(context.Background(), acct); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if balance != "" {
		account.SeedBalance(accounts, acct.ID, decimal.RequireFromString(balance))
	}
	return acct
}

func TestDepositCreditsExactAmount(t *testing.T) {
	svc, accounts, notifier := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCPending, false, "100")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{
		AccountID: acct.ID,
		Type:      TypeDeposit,
		Amount:    decimal.NewFromInt(50),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	if txn.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", txn.Status)
	}
	if !txn.Fee.IsZero() {
		t.Fatalf("deposit must be fee-free, got %s", txn.Fee)
	}
	if txn.CompletedAt == nil {
		t.Fatalf("completed transaction missing completion time")
	}

	balance, err := accounts.GetBalance(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected balance 150, got %s", balance)
	}

	if len(notifier.messages) != 1 || notifier.messages[0].Kind != notification.KindTransaction {
		t.Fatalf("expected one transaction notification, got %+v", notifier.messages)
	}
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "100")

	ctx := context.Background()
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		if _, err := svc.Create(ctx, CreateInput{AccountID: acct.ID, Type: TypeDeposit, Amount: amount, Currency: "USD"}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	balance, _ := accounts.GetBalance(ctx, acct.ID)
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("rejected transaction mutated balance: %s", balance)
	}

	txns, err := svc.ListForAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 0 {
		t.Fatalf("rejected transaction persisted a record: %+v", txns)
	}
}

func TestSendRequiresVerifiedKYCAndCard(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})

	cases := []struct {
		name    string
		kyc     account.KYCStatus
		hasCard bool
	}{
		{"unverified", account.KYCPending, true},
		{"no card", account.KYCVerified, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acct := seedAccount(t, accounts, tc.kyc, tc.hasCard, "1000")
			_, err := svc.Create(context.Background(), CreateInput{
				AccountID: acct.ID,
				Type:      TypeSend,
				Amount:    decimal.NewFromInt(10),
				Currency:  "USD",
			})
			if !errors.Is(err, ErrPreconditionFailed) {
				t.Fatalf("expected ErrPreconditionFailed, got %v", err)
			}
			txns, _ := svc.ListForAccount(context.Background(), acct.ID)
			if len(txns) != 0 {
				t.Fatalf("rejected send persisted a record")
			}
		})
	}
}

func TestSendDeductsAmountPlusFee(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "500")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{
		AccountID: acct.ID,
		Type:      TypeSend,
		Amount:    decimal.NewFromInt(100),
		Currency:  "USD",
		Recipient: &RecipientDetails{Name: "Ada", Phone: "+15550002222"},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if txn.Fee.StringFixed(2) != "2.00" {
		t.Fatalf("expected 2%% fee of 2.00, got %s", txn.Fee)
	}
	if txn.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", txn.Status)
	}
	if txn.SettleAt == nil {
		t.Fatalf("send missing settlement time")
	}

	balance, _ := accounts.GetBalance(ctx, acct.ID)
	if balance.StringFixed(2) != "398.00" {
		t.Fatalf("expected balance 398.00 after amount+fee deduction, got %s", balance)
	}
}

func TestSendInsufficientFundsPersistsNothing(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "50")

	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{
		AccountID: acct.ID,
		Type:      TypeSend,
		Amount:    decimal.NewFromInt(100),
		Currency:  "USD",
	})
	if !errors.Is(err, account.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, _ := accounts.GetBalance(ctx, acct.ID)
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("failed send mutated balance: %s", balance)
	}
	txns, _ := svc.ListForAccount(ctx, acct.ID)
	if len(txns) != 0 {
		t.Fatalf("failed send persisted a record")
	}
}

func TestWithdrawChargesFlatFee(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "100")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{
		AccountID: acct.ID,
		Type:      TypeWithdraw,
		Amount:    decimal.NewFromInt(20),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	if txn.Fee.StringFixed(2) != "2.99" {
		t.Fatalf("expected flat fee 2.99, got %s", txn.Fee)
	}
	if txn.Status != StatusPending {
		t.Fatalf("expected pending, got %s", txn.Status)
	}

	balance, _ := accounts.GetBalance(ctx, acct.ID)
	if balance.StringFixed(2) != "77.01" {
		t.Fatalf("expected 77.01, got %s", balance)
	}
}

func TestExchangeConvertsAndCharges(t *testing.T) {
	resolver := &stubResolver{rate: decimal.NewFromInt(820)}
	svc, accounts, _ := newTestService(resolver)
	acct := seedAccount(t, accounts, account.KYCVerified, true, "100")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{
		AccountID:      acct.ID,
		Type:           TypeExchange,
		Amount:         decimal.NewFromInt(100),
		Currency:       "USD",
		TargetCurrency: "XAF",
	})
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}

	if txn.Fee.StringFixed(2) != "1.50" {
		t.Fatalf("expected 1.5%% fee of 1.50, got %s", txn.Fee)
	}
	if txn.Conversion == nil {
		t.Fatalf("exchange missing conversion metadata")
	}
	if txn.Conversion.ConvertedAmount.StringFixed(2) != "82000.00" {
		t.Fatalf("expected converted amount 82000.00, got %s", txn.Conversion.ConvertedAmount)
	}
	if txn.Conversion.TargetCurrency != "XAF" {
		t.Fatalf("expected target XAF, got %s", txn.Conversion.TargetCurrency)
	}
	if txn.Rate == nil || !txn.Rate.Equal(decimal.NewFromInt(820)) {
		t.Fatalf("expected rate 820, got %v", txn.Rate)
	}
	if txn.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", txn.Status)
	}

	// Exchange does not move the ledger balance.
	balance, _ := accounts.GetBalance(ctx, acct.ID)
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("exchange moved balance: %s", balance)
	}
}

func TestExchangeEmptyTargetUsesSameCurrency(t *testing.T) {
	resolver := &stubResolver{rate: decimal.NewFromInt(820)}
	svc, accounts, _ := newTestService(resolver)
	acct := seedAccount(t, accounts, account.KYCVerified, true, "100")

	txn, err := svc.Create(context.Background(), CreateInput{
		AccountID: acct.ID,
		Type:      TypeExchange,
		Amount:    decimal.NewFromInt(100),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}

	if txn.Rate == nil || !txn.Rate.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected identity rate, got %v", txn.Rate)
	}
	if txn.Conversion.TargetCurrency != "USD" {
		t.Fatalf("expected target USD, got %s", txn.Conversion.TargetCurrency)
	}
}

func TestExchangeRateUnavailable(t *testing.T) {
	resolver := &stubResolver{err: rates.ErrRateUnavailable}
	svc, accounts, _ := newTestService(resolver)
	acct := seedAccount(t, accounts, account.KYCVerified, true, "100")

	_, err := svc.Create(context.Background(), CreateInput{
		AccountID:      acct.ID,
		Type:           TypeExchange,
		Amount:         decimal.NewFromInt(100),
		Currency:       "USD",
		TargetCurrency: "XYZ",
	})
	if !errors.Is(err, rates.ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable, got %v", err)
	}

	txns, _ := svc.ListForAccount(context.Background(), acct.ID)
	if len(txns) != 0 {
		t.Fatalf("failed exchange persisted a record")
	}
}

func TestTerminalStatusIsFrozen(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCPending, false, "")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{AccountID: acct.ID, Type: TypeDeposit, Amount: decimal.NewFromInt(10), Currency: "USD"})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	for _, next := range []Status{StatusCancelled, StatusFailed, StatusCompleted} {
		if _, err := svc.UpdateStatus(ctx, txn.ID, next); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("transition completed->%s: expected ErrInvalidTransition, got %v", next, err)
		}
	}

	got, err := svc.Get(ctx, txn.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("terminal status changed to %s", got.Status)
	}
}

func TestUpdateStatusStampsCompletion(t *testing.T) {
	svc, accounts, notifier := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "1000")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{AccountID: acct.ID, Type: TypeSend, Amount: decimal.NewFromInt(10), Currency: "USD"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	notified := len(notifier.messages)
	updated, err := svc.UpdateStatus(ctx, txn.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Fatalf("completion time not stamped")
	}
	if updated.SettleAt != nil {
		t.Fatalf("settled transaction still scheduled")
	}
	if len(notifier.messages) != notified+1 {
		t.Fatalf("expected status notification")
	}
}

func TestListNewestFirstAndIdempotent(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCPending, false, "")

	ctx := context.Background()
	var ids []string
	for i := 1; i <= 3; i++ {
		txn, err := svc.Create(ctx, CreateInput{AccountID: acct.ID, Type: TypeDeposit, Amount: decimal.NewFromInt(int64(i)), Currency: "USD"})
		if err != nil {
			t.Fatalf("deposit %d: %v", i, err)
		}
		ids = append(ids, txn.ID)
	}

	first, err := svc.ListForAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(first))
	}
	for i := 0; i < len(first)-1; i++ {
		if first[i].CreatedAt.Before(first[i+1].CreatedAt) {
			t.Fatalf("listing not newest-first at index %d", i)
		}
	}

	second, err := svc.ListForAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("repeated listing changed state: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("repeated listing changed order at index %d", i)
		}
	}
}

func TestListUnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(&stubResolver{})
	if _, err := svc.ListForAccount(context.Background(), uuid.NewString()); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected account.ErrNotFound, got %v", err)
	}
}

func TestConcurrentDeposits(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCPending, false, "")

	ctx := context.Background()
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := svc.Create(ctx, CreateInput{AccountID: acct.ID, Type: TypeDeposit, Amount: decimal.NewFromInt(1), Currency: "USD"}); err != nil {
					t.Errorf("concurrent deposit: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	balance, err := accounts.GetBalance(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected balance 20 after 20 unit deposits, got %s", balance)
	}

	txns, _ := svc.ListForAccount(ctx, acct.ID)
	if len(txns) != 20 {
		t.Fatalf("expected 20 records, got %d", len(txns))
	}
}

func TestCardPurchaseRequiresCard(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	noCard := seedAccount(t, accounts, account.KYCVerified, false, "100")

	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateInput{AccountID: noCard.ID, Type: TypeCardPurchase, Amount: decimal.NewFromInt(10), Currency: "USD"}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}

	withCard := seedAccount(t, accounts, account.KYCVerified, true, "100")
	txn, err := svc.Create(ctx, CreateInput{AccountID: withCard.ID, Type: TypeCardPurchase, Amount: decimal.NewFromInt(10), Currency: "USD"})
	if err != nil {
		t.Fatalf("card purchase: %v", err)
	}
	if txn.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", txn.Status)
	}
	balance, _ := accounts.GetBalance(ctx, withCard.ID)
	if !balance.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected 90, got %s", balance)
	}
}

func TestCancelRefundsOutflow(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "500")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{
		AccountID: acct.ID,
		Type:      TypeSend,
		Amount:    decimal.NewFromInt(100),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	balance, _ := accounts.GetBalance(ctx, acct.ID)
	if balance.StringFixed(2) != "398.00" {
		t.Fatalf("expected 398.00 after deduction, got %s", balance)
	}

	cancelled, err := svc.UpdateStatus(ctx, txn.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	balance, _ = accounts.GetBalance(ctx, acct.ID)
	if balance.StringFixed(2) != "500.00" {
		t.Fatalf("cancel must refund amount+fee, got balance %s", balance)
	}
}

func TestFailRefundsWithdraw(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "100")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{
		AccountID: acct.ID,
		Type:      TypeWithdraw,
		Amount:    decimal.NewFromInt(20),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	balance, _ := accounts.GetBalance(ctx, acct.ID)
	if balance.StringFixed(2) != "77.01" {
		t.Fatalf("expected 77.01 after deduction, got %s", balance)
	}

	if _, err := svc.UpdateStatus(ctx, txn.ID, StatusFailed); err != nil {
		t.Fatalf("fail: %v", err)
	}

	balance, _ = accounts.GetBalance(ctx, acct.ID)
	if balance.StringFixed(2) != "100.00" {
		t.Fatalf("failed withdraw must refund amount+fee, got balance %s", balance)
	}

	// A cancelled transaction is terminal: a second transition must not
	// refund again.
	if _, err := svc.UpdateStatus(ctx, txn.ID, StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	balance, _ = accounts.GetBalance(ctx, acct.ID)
	if balance.StringFixed(2) != "100.00" {
		t.Fatalf("double transition refunded twice, balance %s", balance)
	}
}

func TestCompletionDoesNotRefund(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "500")

	ctx := context.Background()
	txn, err := svc.Create(ctx, CreateInput{
		AccountID: acct.ID,
		Type:      TypeSend,
		Amount:    decimal.NewFromInt(100),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, txn.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	balance, _ := accounts.GetBalance(ctx, acct.ID)
	if balance.StringFixed(2) != "398.00" {
		t.Fatalf("completed send must keep the deduction, got %s", balance)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc, accounts, _ := newTestService(&stubResolver{})
	acct := seedAccount(t, accounts, account.KYCVerified, true, "100")

	_, err := svc.Create(context.Background(), CreateInput{
		AccountID: acct.ID,
		Type:      Type("teleport"),
		Amount:    decimal.NewFromInt(10),
		Currency:  "USD",
	})
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("type rejection must not report an amount error: %v", err)
	}
}
