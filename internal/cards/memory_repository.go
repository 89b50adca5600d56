package cards

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	storage   map[string]Card
	byAccount map[string]string
}

// NewMemoryRepository constructs an in-memory card repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage:   make(map[string]Card),
		byAccount: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, card Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byAccount[card.AccountID]; exists {
		return ErrCardExists
	}
	r.storage[card.ID] = card
	r.byAccount[card.AccountID] = card.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.storage[id]
	if !ok {
		return Card{}, ErrCardNotFound
	}
	return card, nil
}

func (r *memoryRepository) GetByAccount(_ context.Context, accountID string) (Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byAccount[accountID]
	if !ok {
		return Card{}, ErrCardNotFound
	}
	return r.storage[id], nil
}

func (r *memoryRepository) SetStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, ok := r.storage[id]
	if !ok {
		return ErrCardNotFound
	}
	card.Status = status
	r.storage[id] = card
	return nil
}
