package registration

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/infra"
	"github.com/shopdesk/shopdesk/internal/logging"
)

// Promoter turns a verified pending registration into an account. Exactly one
// of several concurrent promotions of the same record succeeds; the others fail
// with apperr.ErrNotFound.
type Promoter interface {
	Promote(ctx context.Context, pending PendingRegistration, acct account.Account) error
}

// TxPromoter promotes inside a single Postgres transaction: the pending row is
// deleted with RETURNING and the account inserted before commit.
type TxPromoter struct {
	db infra.DB
}

// NewTxPromoter builds a transactional promoter over db.
func NewTxPromoter(db infra.DB) *TxPromoter {
	return &TxPromoter{db: db}
}

// Promote deletes the pending row and inserts acct atomically.
func (p *TxPromoter) Promote(ctx context.Context, pending PendingRegistration, acct account.Account) (err error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return oops.Code("REGISTRATION_PROMOTE_FAILED").Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var phone string
	err = tx.QueryRow(ctx, `DELETE FROM pending_registrations WHERE phone = $1 AND otp_code = $2 RETURNING phone`,
		pending.Phone, pending.Code).Scan(&phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return errPendingNotFound()
	}
	if err != nil {
		return oops.Code("REGISTRATION_PROMOTE_FAILED").Wrap(err)
	}

	if err = account.InsertAccount(ctx, tx, acct); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return oops.Code("REGISTRATION_PROMOTE_FAILED").Wrap(err)
	}
	return nil
}

// SequentialPromoter promotes across stores that share no transaction. It
// checks for an existing account, inserts the account, then deletes the
// pending record. A retry after a crash between the last two steps cleans the
// leftover record and fails with apperr.ErrNotFound.
type SequentialPromoter struct {
	pending  Repository
	accounts account.Repository
	logger   *slog.Logger
}

// NewSequentialPromoter builds a promoter over independent stores.
func NewSequentialPromoter(pending Repository, accounts account.Repository, logger *slog.Logger) *SequentialPromoter {
	return &SequentialPromoter{pending: pending, accounts: accounts, logger: logger}
}

// Promote inserts acct and removes the pending record.
func (p *SequentialPromoter) Promote(ctx context.Context, pending PendingRegistration, acct account.Account) error {
	if _, err := p.accounts.FindByPhone(ctx, pending.Phone); err == nil {
		p.discard(ctx, pending)
		return errPendingNotFound()
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	if err := p.accounts.Create(ctx, acct); err != nil {
		if !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		// A concurrent verification of the same phone won the insert.
		if _, lookupErr := p.accounts.FindByPhone(ctx, pending.Phone); lookupErr == nil {
			return errPendingNotFound()
		}
		return err
	}

	p.discard(ctx, pending)
	return nil
}

func (p *SequentialPromoter) discard(ctx context.Context, pending PendingRegistration) {
	err := p.pending.Delete(ctx, pending.Phone, pending.Code)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		logging.LogError(p.logger, "discard promoted registration failed", err, slog.String("phone", pending.Phone))
	}
}
