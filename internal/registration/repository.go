package registration

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/infra"
)

// Repository persists pending registrations.
//
// Create fails with apperr.ErrConflict when the phone or email is already
// staged. Replace and Delete fail with apperr.ErrNotFound when the record is
// gone. Delete only removes the record while it still carries code, so a
// resend racing a verification never loses the fresh code.
type Repository interface {
	Create(ctx context.Context, pending PendingRegistration) error
	FindByPhone(ctx context.Context, phone string) (PendingRegistration, error)
	FindByEmail(ctx context.Context, email string) (PendingRegistration, error)
	Replace(ctx context.Context, pending PendingRegistration) error
	Delete(ctx context.Context, phone, code string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

const selectPending = `SELECT phone, email, name, requested_role, otp_code, otp_expires_at, created_at FROM pending_registrations`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db infra.DB
}

// NewPostgresRepository builds a Postgres-backed pending registration store.
func NewPostgresRepository(db infra.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a pending registration.
func (r *PostgresRepository) Create(ctx context.Context, p PendingRegistration) error {
	_, err := r.db.Exec(ctx, `INSERT INTO pending_registrations (phone, email, name, requested_role, otp_code, otp_expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.Phone, p.Email, p.Name, p.RequestedRole, p.Code, p.ExpiresAt.UTC(), p.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("REGISTRATION_PENDING_CONFLICT").
				With("constraint", pgErr.ConstraintName).
				Public("a registration for this phone or email is already pending").
				Wrapf(apperr.ErrConflict, "insert pending registration")
		}
		return oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	return nil
}

// FindByPhone fetches the pending registration for phone.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (PendingRegistration, error) {
	return r.findOne(ctx, selectPending+` WHERE phone = $1`, phone)
}

// FindByEmail fetches the pending registration for email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (PendingRegistration, error) {
	return r.findOne(ctx, selectPending+` WHERE email = $1`, email)
}

func (r *PostgresRepository) findOne(ctx context.Context, query, arg string) (PendingRegistration, error) {
	var p PendingRegistration
	err := r.db.QueryRow(ctx, query, arg).Scan(&p.Phone, &p.Email, &p.Name, &p.RequestedRole, &p.Code, &p.ExpiresAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PendingRegistration{}, errPendingNotFound()
	}
	if err != nil {
		return PendingRegistration{}, oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	p.ExpiresAt = p.ExpiresAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// Replace overwrites every field of the record keyed by p.Phone.
func (r *PostgresRepository) Replace(ctx context.Context, p PendingRegistration) error {
	cmd, err := r.db.Exec(ctx, `UPDATE pending_registrations
        SET email = $2, name = $3, requested_role = $4, otp_code = $5, otp_expires_at = $6, created_at = $7
        WHERE phone = $1`,
		p.Phone, p.Email, p.Name, p.RequestedRole, p.Code, p.ExpiresAt.UTC(), p.CreatedAt.UTC())
	if err != nil {
		return oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return errPendingNotFound()
	}
	return nil
}

// Delete removes the record for phone if it still carries code.
func (r *PostgresRepository) Delete(ctx context.Context, phone, code string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM pending_registrations WHERE phone = $1 AND otp_code = $2`, phone, code)
	if err != nil {
		return oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return errPendingNotFound()
	}
	return nil
}

// DeleteExpired removes every record whose code expired before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM pending_registrations WHERE otp_expires_at < $1`, now.UTC())
	if err != nil {
		return 0, oops.Code("REGISTRATION_SWEEP_FAILED").Wrap(err)
	}
	return cmd.RowsAffected(), nil
}

func errPendingNotFound() error {
	return oops.Code("REGISTRATION_NOT_FOUND").
		Public("no pending registration for this phone").
		Wrapf(apperr.ErrNotFound, "pending registration")
}
