package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/infra"
)

// Repository persists accounts. Create fails with apperr.ErrConflict when the
// phone or email is taken; lookups fail with apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByID(ctx context.Context, id string) (Account, error)
	FindByPhone(ctx context.Context, phone string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// Execer is satisfied by pools and transactions.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const selectAccount = `SELECT id, name, email, phone, role, status, password_hash, created_at, last_login_at FROM accounts`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db infra.DB
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db infra.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	return InsertAccount(ctx, r.db, account)
}

// InsertAccount inserts account through q so callers can run it inside a transaction.
func InsertAccount(ctx context.Context, q Execer, account Account) error {
	id, err := uuid.Parse(account.ID)
	if err != nil {
		return oops.Code("ACCOUNT_INVALID_ID").With("id", account.ID).Wrapf(apperr.ErrValidation, "invalid account id")
	}
	_, err = q.Exec(ctx, `INSERT INTO accounts (id, name, email, phone, role, status, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, account.Name, account.Email, account.Phone, string(account.Role), string(account.Status), account.PasswordHash, account.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_CONFLICT").
				With("constraint", pgErr.ConstraintName).
				Public("phone or email already registered").
				Wrapf(apperr.ErrConflict, "insert account")
		}
		return oops.Code("ACCOUNT_INSERT_FAILED").Wrap(err)
	}
	return nil
}

// FindByID fetches an account by id. Malformed ids are reported as not found.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrapf(apperr.ErrNotFound, "account")
	}
	return r.findOne(ctx, selectAccount+` WHERE id = $1`, accountID)
}

// FindByPhone fetches an account by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (Account, error) {
	return r.findOne(ctx, selectAccount+` WHERE phone = $1`, phone)
}

// FindByEmail fetches an account by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.findOne(ctx, selectAccount+` WHERE email = $1`, email)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (Account, error) {
	var (
		id      uuid.UUID
		role    string
		status  string
		account Account
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &account.Name, &account.Email, &account.Phone, &role, &status,
		&account.PasswordHash, &account.CreatedAt, &account.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, oops.Code("ACCOUNT_NOT_FOUND").Wrapf(apperr.ErrNotFound, "account")
	}
	if err != nil {
		return Account{}, oops.Code("ACCOUNT_QUERY_FAILED").Wrap(err)
	}
	account.ID = id.String()
	account.Role = Role(role)
	account.Status = Status(status)
	account.CreatedAt = account.CreatedAt.UTC()
	if account.LastLoginAt != nil {
		t := account.LastLoginAt.UTC()
		account.LastLoginAt = &t
	}
	return account, nil
}

// UpdateRole changes the role of an account.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	return r.update(ctx, `UPDATE accounts SET role = $1 WHERE id = $2`, id, string(role))
}

// UpdatePasswordHash replaces the stored credential hash.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.update(ctx, `UPDATE accounts SET password_hash = $1 WHERE id = $2`, id, hash)
}

// TouchLastLogin records a successful login.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, `UPDATE accounts SET last_login_at = $1 WHERE id = $2`, id, at.UTC())
}

func (r *PostgresRepository) update(ctx context.Context, query, id string, value any) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrapf(apperr.ErrNotFound, "account")
	}
	cmd, err := r.db.Exec(ctx, query, value, accountID)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("id", id).Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrapf(apperr.ErrNotFound, "account")
	}
	return nil
}
