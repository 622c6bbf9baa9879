package account

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
}

// NewMemoryRepository builds an in-memory account store for tests and the dev profile.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[account.OwnerEmail]; exists {
		return ErrDuplicateEmail
	}
	if _, exists := r.byID[account.ID]; exists {
		return ErrDuplicateID
	}
	account.PasswordHash = append([]byte(nil), account.PasswordHash...)
	r.byID[account.ID] = account
	r.byEmail[account.OwnerEmail] = account.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByIDs(_ context.Context, ids []string) (map[string]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Account, len(ids))
	for _, id := range ids {
		if acc, ok := r.byID[id]; ok {
			out[id] = acc
		}
	}
	return out, nil
}

func (r *memoryRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}

func (r *memoryRepository) UpdateBalance(_ context.Context, id string, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	acc.Balance = balance
	r.byID[id] = acc
	return nil
}
