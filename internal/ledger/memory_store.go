package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greenpay/greenpay/internal/account"
)

type memoryStore struct {
	mu       sync.Mutex
	accounts account.Store
	storage  map[string]Transaction
}

// NewMemoryStore creates a concurrency-safe in-memory transaction store.
// Balance deltas are applied through the account store before the record is
// written, so a rejected adjustment leaves no trace.
func NewMemoryStore(accounts account.Store) Store {
	return &memoryStore{accounts: accounts, storage: make(map[string]Transaction)}
}

func (s *memoryStore) Create(ctx context.Context, txn Transaction, balanceDelta decimal.Decimal) (decimal.Decimal, error) {
	newBalance := decimal.Zero
	if !balanceDelta.IsZero() {
		var err error
		newBalance, err = s.accounts.AdjustBalance(ctx, txn.AccountID, balanceDelta)
		if err != nil {
			return decimal.Zero, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage[txn.ID] = txn
	return newBalance, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.storage[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return txn, nil
}

func (s *memoryStore) ListByAccount(_ context.Context, accountID string) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for _, txn := range s.storage {
		if txn.AccountID == accountID {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memoryStore) UpdateStatus(ctx context.Context, id string, status Status, balanceDelta decimal.Decimal) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.storage[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if !txn.Status.CanTransitionTo(status) {
		return Transaction{}, ErrInvalidTransition
	}
	if !balanceDelta.IsZero() {
		if _, err := s.accounts.AdjustBalance(ctx, txn.AccountID, balanceDelta); err != nil {
			return Transaction{}, err
		}
	}
	txn.Status = status
	txn.SettleAt = nil
	if status == StatusCompleted {
		now := time.Now().UTC()
		txn.CompletedAt = &now
	}
	s.storage[id] = txn
	return txn, nil
}

func (s *memoryStore) DueForSettlement(_ context.Context, now time.Time) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Transaction
	for _, txn := range s.storage {
		if txn.Status == StatusProcessing && txn.SettleAt != nil && !txn.SettleAt.After(now) {
			due = append(due, txn)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	return due, nil
}

func (s *memoryStore) CountAwaitingSettlement(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, txn := range s.storage {
		if txn.Status == StatusProcessing && txn.SettleAt != nil {
			n++
		}
	}
	return n, nil
}
