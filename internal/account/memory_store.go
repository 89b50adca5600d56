package account

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu      sync.Mutex
	storage map[string]Account
}

// NewMemoryStore constructs an in-memory store. Mutations are serialized
// under a single lock, so concurrent adjustments to one account cannot lose
// updates.
func NewMemoryStore() Store {
	return &memoryStore{storage: make(map[string]Account)}
}

func (s *memoryStore) Create(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.storage[acct.ID]; exists {
		return ErrAccountExists
	}
	s.storage[acct.ID] = acct
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.storage[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (s *memoryStore) List(_ context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make([]Account, 0, len(s.storage))
	for _, acct := range s.storage {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *memoryStore) GetBalance(_ context.Context, id string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.storage[id]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return acct.Balance, nil
}

func (s *memoryStore) AdjustBalance(_ context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.storage[id]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	next := acct.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, ErrInsufficientFunds
	}
	acct.Balance = next
	s.storage[id] = acct
	return next, nil
}

func (s *memoryStore) SetKYCStatus(_ context.Context, id string, status KYCStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.storage[id]
	if !ok {
		return ErrNotFound
	}
	acct.KYCStatus = status
	s.storage[id] = acct
	return nil
}

func (s *memoryStore) SetHasCard(_ context.Context, id string, hasCard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.storage[id]
	if !ok {
		return ErrNotFound
	}
	acct.HasCard = hasCard
	s.storage[id] = acct
	return nil
}
