package account

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/apperr"
)

var accountColumns = []string{"id", "name", "email", "phone", "role", "status", "password_hash", "created_at", "last_login_at"}

func TestPostgresRepositoryCreate(t *testing.T) {
	id := uuid.New()
	a := Account{
		ID: id.String(), Name: "Ana", Email: "ana@x.com", Phone: "+15551234567",
		Role: RoleUser, Status: StatusActive, PasswordHash: "hash", CreatedAt: time.Now(),
	}

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "inserted",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
					WithArgs(id, "Ana", "ana@x.com", "+15551234567", "user", "active", "hash", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation maps to conflict",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
					WithArgs(id, "Ana", "ana@x.com", "+15551234567", "user", "active", "hash", pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_phone_key"})
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setup(mock)

			err = NewPostgresRepository(mock).Create(context.Background(), a)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepositoryFindByPhone(t *testing.T) {
	id := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows(accountColumns).
			AddRow(id.String(), "Ana", "ana@x.com", "+15551234567", "user", "active", "hash", created, nil)
		mock.ExpectQuery(regexp.QuoteMeta(selectAccount + " WHERE phone = $1")).
			WithArgs("+15551234567").
			WillReturnRows(rows)

		got, err := NewPostgresRepository(mock).FindByPhone(context.Background(), "+15551234567")
		require.NoError(t, err)
		assert.Equal(t, id.String(), got.ID)
		assert.Equal(t, RoleUser, got.Role)
		assert.Equal(t, StatusActive, got.Status)
		assert.Nil(t, got.LastLoginAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(selectAccount + " WHERE phone = $1")).
			WithArgs("+10000000000").
			WillReturnError(pgx.ErrNoRows)

		_, err = NewPostgresRepository(mock).FindByPhone(context.Background(), "+10000000000")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error is internal", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(selectAccount + " WHERE phone = $1")).
			WithArgs("+10000000000").
			WillReturnError(errors.New("connection refused"))

		_, err = NewPostgresRepository(mock).FindByPhone(context.Background(), "+10000000000")
		require.Error(t, err)
		assert.True(t, apperr.IsInternal(err))
	})
}

func TestPostgresRepositoryFindByIDRejectsMalformedID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresRepository(mock).FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryUpdateRole(t *testing.T) {
	id := uuid.New()

	t.Run("updated", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET role = $1 WHERE id = $2")).
			WithArgs("admin", id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewPostgresRepository(mock).UpdateRole(context.Background(), id.String(), RoleAdmin))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET role = $1 WHERE id = $2")).
			WithArgs("admin", id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewPostgresRepository(mock).UpdateRole(context.Background(), id.String(), RoleAdmin)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
