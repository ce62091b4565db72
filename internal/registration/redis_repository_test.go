package registration

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/apperr"
)

func newRedisRepository(t *testing.T, ttl time.Duration) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client, ttl), mr
}

func samplePending(now time.Time) PendingRegistration {
	return PendingRegistration{
		Phone:         "+15551234567",
		Email:         "ana@x.com",
		Name:          "Ana",
		RequestedRole: "user",
		Code:          "482913",
		ExpiresAt:     now.Add(10 * time.Minute),
		CreatedAt:     now,
	}
}

func TestRedisRepositoryCreateAndFind(t *testing.T) {
	repo, mr := newRedisRepository(t, time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p := samplePending(now)

	require.NoError(t, repo.Create(ctx, p))

	byPhone, err := repo.FindByPhone(ctx, p.Phone)
	require.NoError(t, err)
	assert.Equal(t, p, byPhone)

	byEmail, err := repo.FindByEmail(ctx, p.Email)
	require.NoError(t, err)
	assert.Equal(t, p, byEmail)

	assert.Equal(t, time.Hour, mr.TTL(redisPhonePrefix+p.Phone))
	assert.Equal(t, time.Hour, mr.TTL(redisEmailPrefix+p.Email))
}

func TestRedisRepositoryCreateConflicts(t *testing.T) {
	repo, _ := newRedisRepository(t, time.Hour)
	ctx := context.Background()
	p := samplePending(time.Now().UTC())
	require.NoError(t, repo.Create(ctx, p))

	samePhone := p
	samePhone.Email = "bo@x.com"
	assert.ErrorIs(t, repo.Create(ctx, samePhone), apperr.ErrConflict)

	sameEmail := p
	sameEmail.Phone = "+15550000000"
	assert.ErrorIs(t, repo.Create(ctx, sameEmail), apperr.ErrConflict)
}

func TestRedisRepositoryReplace(t *testing.T) {
	repo, _ := newRedisRepository(t, time.Hour)
	ctx := context.Background()
	p := samplePending(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, repo.Replace(ctx, p), apperr.ErrNotFound)

	require.NoError(t, repo.Create(ctx, p))
	p.Code = "111111"
	p.ExpiresAt = p.ExpiresAt.Add(5 * time.Minute)
	require.NoError(t, repo.Replace(ctx, p))

	got, err := repo.FindByPhone(ctx, p.Phone)
	require.NoError(t, err)
	assert.Equal(t, "111111", got.Code)
	assert.Equal(t, p.ExpiresAt, got.ExpiresAt)
}

func TestRedisRepositoryDeleteComparesCode(t *testing.T) {
	repo, mr := newRedisRepository(t, time.Hour)
	ctx := context.Background()
	p := samplePending(time.Now().UTC())
	require.NoError(t, repo.Create(ctx, p))

	assert.ErrorIs(t, repo.Delete(ctx, p.Phone, "000000"), apperr.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, p.Phone, p.Code))
	assert.False(t, mr.Exists(redisPhonePrefix+p.Phone))
	assert.False(t, mr.Exists(redisEmailPrefix+p.Email))
	assert.ErrorIs(t, repo.Delete(ctx, p.Phone, p.Code), apperr.ErrNotFound)

	_, err := repo.FindByEmail(ctx, p.Email)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRedisRepositoryDeleteExpired(t *testing.T) {
	repo, _ := newRedisRepository(t, time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	expired := samplePending(now.Add(-20 * time.Minute))
	live := samplePending(now)
	live.Phone = "+15550000000"
	live.Email = "bo@x.com"
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, repo.Create(ctx, live))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.FindByPhone(ctx, expired.Phone)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.FindByPhone(ctx, live.Phone)
	assert.NoError(t, err)
}

func TestRedisRepositoryKeysExpire(t *testing.T) {
	repo, mr := newRedisRepository(t, 15*time.Minute)
	ctx := context.Background()
	p := samplePending(time.Now().UTC())
	require.NoError(t, repo.Create(ctx, p))

	mr.FastForward(16 * time.Minute)
	_, err := repo.FindByPhone(ctx, p.Phone)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.FindByEmail(ctx, p.Email)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
