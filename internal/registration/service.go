package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/credential"
	"github.com/shopdesk/shopdesk/internal/logging"
	"github.com/shopdesk/shopdesk/internal/notification"
	"github.com/shopdesk/shopdesk/internal/observability"
	"github.com/shopdesk/shopdesk/internal/otp"
)

const (
	// MinPasswordBytes and MaxPasswordBytes bound accepted passwords. bcrypt
	// ignores input past 72 bytes.
	MinPasswordBytes = 8
	MaxPasswordBytes = 72

	defaultOTPTTL = 10 * time.Minute
	defaultApp    = "ShopDesk"
)

// Deps are the collaborators of the registration flow.
type Deps struct {
	Pending  Repository
	Accounts account.Repository
	Promoter Promoter
	Hasher   credential.Hasher
	Codes    otp.Generator
	Notifier notification.Notifier
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Config tunes the registration flow.
type Config struct {
	AppName string
	OTPTTL  time.Duration
	Now     func() time.Time
}

// Service runs signup: RequestRegistration, ResendCode and VerifyRegistration.
type Service struct {
	pending  Repository
	accounts account.Repository
	promoter Promoter
	hasher   credential.Hasher
	codes    otp.Generator
	notifier notification.Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics

	appName string
	otpTTL  time.Duration
	now     func() time.Time
}

// NewService validates deps and applies defaults to cfg. Without a Promoter the
// stores are promoted sequentially.
func NewService(deps Deps, cfg Config) (*Service, error) {
	switch {
	case deps.Pending == nil:
		return nil, oops.Errorf("registration: pending repository is required")
	case deps.Accounts == nil:
		return nil, oops.Errorf("registration: account repository is required")
	case deps.Hasher == nil:
		return nil, oops.Errorf("registration: hasher is required")
	case deps.Notifier == nil:
		return nil, oops.Errorf("registration: notifier is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Codes == nil {
		deps.Codes = otp.NewGenerator()
	}
	if deps.Promoter == nil {
		deps.Promoter = NewSequentialPromoter(deps.Pending, deps.Accounts, deps.Logger)
	}
	if cfg.AppName == "" {
		cfg.AppName = defaultApp
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = defaultOTPTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		pending:  deps.Pending,
		accounts: deps.Accounts,
		promoter: deps.Promoter,
		hasher:   deps.Hasher,
		codes:    deps.Codes,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		appName:  cfg.AppName,
		otpTTL:   cfg.OTPTTL,
		now:      cfg.Now,
	}, nil
}

// RequestRegistration stages a signup and sends a verification code to the
// phone. The pending record survives a delivery failure so the caller can use
// ResendCode.
func (s *Service) RequestRegistration(ctx context.Context, req Request) (ack Ack, err error) {
	defer func() { s.metrics.RecordRegistrationRequest("request", apperr.Kind(err)) }()

	req, err = normalizeRequest(req)
	if err != nil {
		return Ack{}, err
	}

	if err := s.ensureAccountAbsent(ctx, req.Phone, req.Email); err != nil {
		return Ack{}, err
	}
	now := s.now().UTC()
	if err := s.ensurePendingAbsent(ctx, now, s.pending.FindByPhone, req.Phone); err != nil {
		return Ack{}, err
	}
	if err := s.ensurePendingAbsent(ctx, now, s.pending.FindByEmail, req.Email); err != nil {
		return Ack{}, err
	}

	code, err := s.codes.Generate()
	if err != nil {
		return Ack{}, err
	}
	pending := PendingRegistration{
		Phone:         req.Phone,
		Email:         req.Email,
		Name:          req.Name,
		RequestedRole: req.Role,
		Code:          code,
		ExpiresAt:     now.Add(s.otpTTL),
		CreatedAt:     now,
	}
	if err := s.pending.Create(ctx, pending); err != nil {
		return Ack{}, err
	}
	s.logger.InfoContext(ctx, "registration requested",
		slog.String("phone", pending.Phone),
		slog.String("requested_role", pending.RequestedRole),
		slog.Time("expires_at", pending.ExpiresAt))

	if err := s.sendCode(ctx, pending); err != nil {
		return Ack{}, err
	}
	return Ack{Phone: pending.Phone, ExpiresAt: pending.ExpiresAt}, nil
}

// ResendCode issues a fresh code and expiry for a staged signup, replacing the
// previous record.
func (s *Service) ResendCode(ctx context.Context, phone string) (ack Ack, err error) {
	defer func() { s.metrics.RecordRegistrationRequest("resend", apperr.Kind(err)) }()

	if strings.TrimSpace(phone) == "" {
		return Ack{}, validationError("phone is required")
	}
	phone, ok := account.NormalizePhone(phone)
	if !ok {
		return Ack{}, validationError("phone is invalid")
	}

	pending, err := s.pending.FindByPhone(ctx, phone)
	if err != nil {
		return Ack{}, err
	}
	code, err := s.codes.Generate()
	if err != nil {
		return Ack{}, err
	}
	pending.Code = code
	pending.ExpiresAt = s.now().UTC().Add(s.otpTTL)
	if err := s.pending.Replace(ctx, pending); err != nil {
		return Ack{}, err
	}
	s.logger.InfoContext(ctx, "registration code reissued", slog.String("phone", pending.Phone), slog.Time("expires_at", pending.ExpiresAt))

	if err := s.sendCode(ctx, pending); err != nil {
		return Ack{}, err
	}
	return Ack{Phone: pending.Phone, ExpiresAt: pending.ExpiresAt}, nil
}

// VerifyRegistration checks the code for phone and, on success, creates an
// active account with role user and removes the pending record. An expired
// record is removed while the error is reported; a wrong code leaves it intact.
func (s *Service) VerifyRegistration(ctx context.Context, v Verification) (acct account.Account, err error) {
	defer func() { s.metrics.RecordVerification(apperr.Kind(err)) }()

	v.Code = strings.TrimSpace(v.Code)
	if strings.TrimSpace(v.Phone) == "" || v.Code == "" || v.Password == "" {
		return account.Account{}, validationError("phone, otp and password are required")
	}
	phone, ok := account.NormalizePhone(v.Phone)
	if !ok {
		return account.Account{}, validationError("phone is invalid")
	}
	v.Phone = phone
	if !otp.Valid(v.Code) {
		return account.Account{}, validationError(fmt.Sprintf("otp must be %d digits", otp.Length))
	}
	if n := len(v.Password); n < MinPasswordBytes || n > MaxPasswordBytes {
		return account.Account{}, validationError(fmt.Sprintf("password must be between %d and %d bytes", MinPasswordBytes, MaxPasswordBytes))
	}

	pending, err := s.pending.FindByPhone(ctx, v.Phone)
	if err != nil {
		return account.Account{}, err
	}

	now := s.now().UTC()
	if pending.IsExpired(now) {
		if err := s.pending.Delete(ctx, pending.Phone, pending.Code); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			logging.LogError(s.logger, "delete expired registration failed", err, slog.String("phone", pending.Phone))
		}
		return account.Account{}, oops.Code("REGISTRATION_CODE_EXPIRED").
			With("phone", pending.Phone).
			Public("verification code expired, request a new one").
			Wrapf(apperr.ErrExpired, "code expired at %s", pending.ExpiresAt.Format(time.RFC3339))
	}

	if !otp.Equal(v.Code, pending.Code) {
		return account.Account{}, oops.Code("REGISTRATION_CODE_INVALID").
			With("phone", pending.Phone).
			Public("invalid verification code").
			Wrapf(apperr.ErrInvalidCode, "code mismatch")
	}

	hash, err := s.hasher.Hash(v.Password)
	if err != nil {
		return account.Account{}, err
	}
	acct = account.Account{
		ID:           uuid.NewString(),
		Name:         pending.Name,
		Email:        pending.Email,
		Phone:        pending.Phone,
		Role:         account.RoleUser,
		Status:       account.StatusActive,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := s.promoter.Promote(ctx, pending, acct); err != nil {
		return account.Account{}, err
	}

	s.logger.InfoContext(ctx, "registration verified", slog.String("account_id", acct.ID), slog.String("phone", acct.Phone))
	return acct, nil
}

// SweepExpired removes pending registrations whose code has expired and
// returns how many were removed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.pending.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return n, err
	}
	s.logger.InfoContext(ctx, "expired registrations swept", slog.Int64("removed", n))
	return n, nil
}

func (s *Service) sendCode(ctx context.Context, pending PendingRegistration) error {
	msg := notification.Message{
		Kind:        notification.KindRegistrationOTP,
		Destination: pending.Phone,
		Body:        fmt.Sprintf("Your %s verification code is %s", s.appName, pending.Code),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "verification code delivery failed", slog.String("phone", pending.Phone), slog.Any("error", err))
		return oops.Code("REGISTRATION_DELIVERY_FAILED").
			With("phone", pending.Phone).
			Public("could not deliver verification code, try resending").
			Wrapf(errors.Join(apperr.ErrDeliveryFailed, err), "send code")
	}
	return nil
}

func (s *Service) ensureAccountAbsent(ctx context.Context, phone, email string) error {
	for _, lookup := range []struct {
		find func(context.Context, string) (account.Account, error)
		key  string
	}{
		{s.accounts.FindByPhone, phone},
		{s.accounts.FindByEmail, email},
	} {
		_, err := lookup.find(ctx, lookup.key)
		if err == nil {
			return oops.Code("REGISTRATION_ACCOUNT_EXISTS").
				Public("phone or email already registered").
				Wrapf(apperr.ErrConflict, "account exists")
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	return nil
}

// ensurePendingAbsent fails with a conflict while a live pending record holds
// key. An expired record in the way is removed.
func (s *Service) ensurePendingAbsent(ctx context.Context, now time.Time, find func(context.Context, string) (PendingRegistration, error), key string) error {
	existing, err := find(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !existing.IsExpired(now) {
		return oops.Code("REGISTRATION_PENDING_CONFLICT").
			With("phone", existing.Phone).
			Public("a registration for this phone or email is already pending").
			Wrapf(apperr.ErrConflict, "pending registration exists")
	}
	if err := s.pending.Delete(ctx, existing.Phone, existing.Code); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

func normalizeRequest(req Request) (Request, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = account.NormalizeEmail(req.Email)
	phone, phoneOK := account.NormalizePhone(req.Phone)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))

	if req.Name == "" || req.Email == "" || strings.TrimSpace(req.Phone) == "" {
		return Request{}, validationError("name, email and phone are required")
	}
	if !strings.Contains(req.Email, "@") {
		return Request{}, validationError("email is invalid")
	}
	if !phoneOK {
		return Request{}, validationError("phone must be an international number such as +15551234567")
	}
	req.Phone = phone
	if req.Role == "" {
		req.Role = string(account.RoleUser)
	}
	if !account.Role(req.Role).Valid() {
		return Request{}, validationError("role is invalid")
	}
	return req, nil
}

func validationError(msg string) error {
	return oops.Code("REGISTRATION_VALIDATION").Public(msg).Wrapf(apperr.ErrValidation, "%s", msg)
}
