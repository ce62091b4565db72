//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/credential"
	"github.com/shopdesk/shopdesk/internal/logging"
	"github.com/shopdesk/shopdesk/internal/notification"
	"github.com/shopdesk/shopdesk/internal/otp"
	"github.com/shopdesk/shopdesk/internal/registration"
	"github.com/shopdesk/shopdesk/internal/store"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("shopdesk"),
		postgres.WithUsername("shopdesk"),
		postgres.WithPassword("shopdesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestMigrator_FullCycle(t *testing.T) {
	connStr := startPostgres(t)

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	defer migrator.Close()

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, migrator.Up())
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	require.NoError(t, migrator.Steps(-1))
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Up(), "Up is idempotent")

	require.NoError(t, migrator.Down())
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

type postgresFixture struct {
	pool     *pgxpool.Pool
	svc      *registration.Service
	pending  *registration.PostgresRepository
	accounts *account.PostgresRepository
	now      time.Time
	mu       sync.Mutex
}

func (f *postgresFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *postgresFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newPostgresFixture(t *testing.T) *postgresFixture {
	t.Helper()
	ctx := context.Background()
	connStr := startPostgres(t)

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	hasher, err := credential.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	f := &postgresFixture{
		pool:     pool,
		pending:  registration.NewPostgresRepository(pool),
		accounts: account.NewPostgresRepository(pool),
		now:      time.Now().UTC().Truncate(time.Millisecond),
	}
	f.svc, err = registration.NewService(registration.Deps{
		Pending:  f.pending,
		Accounts: f.accounts,
		Promoter: registration.NewTxPromoter(pool),
		Hasher:   hasher,
		Codes:    otp.Fixed("482913"),
		Notifier: notification.NewLoggerNotifier(logging.Discard()),
	}, registration.Config{AppName: "ShopDesk", OTPTTL: 10 * time.Minute, Now: f.clock})
	require.NoError(t, err)
	return f
}

var ana = registration.Request{Name: "Ana", Email: "ana@x.com", Phone: "+15551234567"}

func TestPostgresRegistrationFlow(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestRegistration(ctx, ana)
	require.NoError(t, err)

	_, err = f.svc.RequestRegistration(ctx, registration.Request{Name: "Bo", Email: "ana@x.com", Phone: "+15550000000"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	acct, err := f.svc.VerifyRegistration(ctx, registration.Verification{Phone: ana.Phone, Code: "482913", Password: "P@ssw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, account.RoleUser, acct.Role)

	stored, err := f.accounts.FindByPhone(ctx, ana.Phone)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, stored.ID)
	assert.Equal(t, account.StatusActive, stored.Status)

	_, err = f.pending.FindByPhone(ctx, ana.Phone)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.RequestRegistration(ctx, ana)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestPostgresConcurrentVerifyCreatesOneAccount(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestRegistration(ctx, ana)
	require.NoError(t, err)

	const attempts = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyRegistration(ctx, registration.Verification{Phone: ana.Phone, Code: "482913", Password: "P@ssw0rd!"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrNotFound):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	var count int
	require.NoError(t, f.pool.QueryRow(ctx, "SELECT count(*) FROM accounts WHERE phone = $1", ana.Phone).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPostgresExpiryAndSweep(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestRegistration(ctx, ana)
	require.NoError(t, err)

	f.advance(11 * time.Minute)
	removed, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = f.svc.VerifyRegistration(ctx, registration.Verification{Phone: ana.Phone, Code: "482913", Password: "P@ssw0rd!"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.RequestRegistration(ctx, ana)
	require.NoError(t, err, "phone is free again once the pending row is gone")
}
