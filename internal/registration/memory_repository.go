package registration

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/apperr"
)

type memoryRepository struct {
	mu      sync.Mutex
	byPhone map[string]PendingRegistration
	emails  map[string]string
}

// NewMemoryRepository builds an in-memory pending registration store.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byPhone: make(map[string]PendingRegistration),
		emails:  make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, p PendingRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, phoneTaken := r.byPhone[p.Phone]
	_, emailTaken := r.emails[p.Email]
	if phoneTaken || emailTaken {
		return oops.Code("REGISTRATION_PENDING_CONFLICT").
			Public("a registration for this phone or email is already pending").
			Wrapf(apperr.ErrConflict, "insert pending registration")
	}
	r.byPhone[p.Phone] = p
	r.emails[p.Email] = p.Phone
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (PendingRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byPhone[phone]
	if !ok {
		return PendingRegistration{}, errPendingNotFound()
	}
	return p, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (PendingRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byPhone[r.emails[email]]
	if !ok {
		return PendingRegistration{}, errPendingNotFound()
	}
	return p, nil
}

func (r *memoryRepository) Replace(_ context.Context, p PendingRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byPhone[p.Phone]
	if !ok {
		return errPendingNotFound()
	}
	if old.Email != p.Email {
		if owner, taken := r.emails[p.Email]; taken && owner != p.Phone {
			return oops.Code("REGISTRATION_PENDING_CONFLICT").Wrapf(apperr.ErrConflict, "email already pending")
		}
		delete(r.emails, old.Email)
		r.emails[p.Email] = p.Phone
	}
	r.byPhone[p.Phone] = p
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, phone, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byPhone[phone]
	if !ok || p.Code != code {
		return errPendingNotFound()
	}
	delete(r.byPhone, phone)
	delete(r.emails, p.Email)
	return nil
}

func (r *memoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for phone, p := range r.byPhone {
		if p.IsExpired(now) {
			delete(r.byPhone, phone)
			delete(r.emails, p.Email)
			n++
		}
	}
	return n, nil
}
