// Package auth authenticates accounts and issues session tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/credential"
	"github.com/shopdesk/shopdesk/internal/logging"
	"github.com/shopdesk/shopdesk/internal/observability"
)

// dummyPassword is hashed once at startup so unknown identifiers cost the same
// as wrong passwords.
const dummyPassword = "shopdesk-timing-equalizer"

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   account.Account
}

// Options tune Authenticate.
type Options struct {
	// RevealUnknownAccount reports unknown identifiers as not found instead of
	// invalid credentials.
	RevealUnknownAccount bool
	Logger               *slog.Logger
	Metrics              *observability.Metrics
	Now                  func() time.Time
}

// Service authenticates accounts.
type Service struct {
	accounts  account.Repository
	hasher    credential.Hasher
	tokens    *TokenManager
	dummyHash string

	reveal  bool
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService builds an auth service.
func NewService(accounts account.Repository, hasher credential.Hasher, tokens *TokenManager, opts Options) (*Service, error) {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		accounts:  accounts,
		hasher:    hasher,
		tokens:    tokens,
		dummyHash: dummy,
		reveal:    opts.RevealUnknownAccount,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
	}, nil
}

// Authenticate verifies identifier (an email when it contains "@", a phone
// otherwise) and password and issues a session token.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (session Session, err error) {
	defer func() { s.metrics.RecordLogin(apperr.Kind(err)) }()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Session{}, oops.Code("AUTH_VALIDATION").
			Public("identifier and password are required").
			Wrapf(apperr.ErrValidation, "missing credentials")
	}

	acct, err := account.FindByIdentifier(ctx, s.accounts, identifier)
	if errors.Is(err, apperr.ErrNotFound) {
		_, _ = s.hasher.Verify(password, s.dummyHash)
		if s.reveal {
			return Session{}, oops.Code("AUTH_ACCOUNT_NOT_FOUND").Public("account not found").Wrapf(apperr.ErrNotFound, "unknown identifier")
		}
		return Session{}, invalidCredentials()
	}
	if err != nil {
		return Session{}, err
	}

	ok, err := s.hasher.Verify(password, acct.PasswordHash)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, invalidCredentials()
	}
	if acct.Status != account.StatusActive {
		return Session{}, oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("account_id", acct.ID).
			With("status", string(acct.Status)).
			Public("account is not active").
			Wrapf(apperr.ErrForbidden, "account status %s", acct.Status)
	}

	now := s.now().UTC()
	token, expiresAt, err := s.tokens.Issue(acct, now)
	if err != nil {
		return Session{}, err
	}

	s.afterLogin(ctx, &acct, password, now)
	s.logger.InfoContext(ctx, "login succeeded", slog.String("account_id", acct.ID), slog.String("role", string(acct.Role)))
	return Session{Token: token, ExpiresAt: expiresAt, Account: acct}, nil
}

// afterLogin records the login time and upgrades stale hashes. Failures are
// logged and never fail the login.
func (s *Service) afterLogin(ctx context.Context, acct *account.Account, password string, now time.Time) {
	if err := s.accounts.TouchLastLogin(ctx, acct.ID, now); err != nil {
		logging.LogError(s.logger, "record last login failed", err, slog.String("account_id", acct.ID))
	} else {
		acct.LastLoginAt = &now
	}

	if !s.hasher.NeedsUpgrade(acct.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, acct.ID, hash)
	}
	if err != nil {
		logging.LogError(s.logger, "password rehash failed", err, slog.String("account_id", acct.ID))
		return
	}
	acct.PasswordHash = hash
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").
		Public("invalid credentials").
		Wrapf(apperr.ErrInvalidCredentials, "login rejected")
}
