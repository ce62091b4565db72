package account

import (
	"context"
	"strings"

	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/apperr"
)

// Service serves account lookups and out-of-band administration.
type Service struct {
	repo Repository
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the account with id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	if strings.TrimSpace(id) == "" {
		return Account{}, oops.Code("ACCOUNT_ID_REQUIRED").Public("account id is required").Wrapf(apperr.ErrValidation, "empty account id")
	}
	return s.repo.FindByID(ctx, id)
}

// Lookup resolves a login identifier: an email when it contains "@", a phone otherwise.
func (s *Service) Lookup(ctx context.Context, identifier string) (Account, error) {
	return FindByIdentifier(ctx, s.repo, identifier)
}

// Elevate grants the admin role to the account named by identifier. It is only
// reachable from the operator CLI.
func (s *Service) Elevate(ctx context.Context, identifier string) (Account, error) {
	account, err := s.Lookup(ctx, identifier)
	if err != nil {
		return Account{}, err
	}
	if account.Role == RoleAdmin {
		return account, nil
	}
	if err := s.repo.UpdateRole(ctx, account.ID, RoleAdmin); err != nil {
		return Account{}, err
	}
	account.Role = RoleAdmin
	return account, nil
}

// FindByIdentifier looks an account up by email or phone.
func FindByIdentifier(ctx context.Context, repo Repository, identifier string) (Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Account{}, oops.Code("ACCOUNT_IDENTIFIER_REQUIRED").Public("identifier is required").Wrapf(apperr.ErrValidation, "empty identifier")
	}
	if IsEmail(identifier) {
		return repo.FindByEmail(ctx, NormalizeEmail(identifier))
	}
	phone, ok := NormalizePhone(identifier)
	if !ok {
		return Account{}, oops.Code("ACCOUNT_IDENTIFIER_INVALID").Public("identifier must be an email or an international phone number").Wrapf(apperr.ErrValidation, "invalid phone identifier")
	}
	return repo.FindByPhone(ctx, phone)
}
