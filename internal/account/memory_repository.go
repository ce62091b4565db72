package account

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/apperr"
)

type memoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]Account
	phones map[string]string
	emails map[string]string
}

// NewMemoryRepository builds an in-memory account store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:   make(map[string]Account),
		phones: make(map[string]string),
		emails: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, phoneTaken := r.phones[account.Phone]
	_, emailTaken := r.emails[account.Email]
	_, idTaken := r.byID[account.ID]
	if phoneTaken || emailTaken || idTaken {
		return oops.Code("ACCOUNT_CONFLICT").Public("phone or email already registered").Wrapf(apperr.ErrConflict, "insert account")
	}
	r.byID[account.ID] = account
	r.phones[account.Phone] = account.ID
	r.emails[account.Email] = account.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.phones[phone])
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.emails[email])
}

func (r *memoryRepository) UpdateRole(_ context.Context, id string, role Role) error {
	return r.mutate(id, func(a *Account) { a.Role = role })
}

func (r *memoryRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return r.mutate(id, func(a *Account) { a.PasswordHash = hash })
}

func (r *memoryRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(a *Account) {
		t := at.UTC()
		a.LastLoginAt = &t
	})
}

func (r *memoryRepository) get(id string) (Account, error) {
	account, ok := r.byID[id]
	if !ok {
		return Account{}, oops.Code("ACCOUNT_NOT_FOUND").Wrapf(apperr.ErrNotFound, "account")
	}
	return account, nil
}

func (r *memoryRepository) mutate(id string, fn func(*Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, err := r.get(id)
	if err != nil {
		return err
	}
	fn(&account)
	r.byID[id] = account
	return nil
}
