package registration

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/apperr"
)

const (
	redisPhonePrefix = "registration:pending:phone:"
	redisEmailPrefix = "registration:pending:email:"
	redisScanCount   = 100
)

// KEYS[1] phone hash, KEYS[2] email index. ARGV[1] ttl ms, ARGV[2] phone, ARGV[3..] field/value pairs.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 3))
redis.call("PEXPIRE", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[1])
return 1
`)

// KEYS[1] phone hash, KEYS[2] new email index. ARGV[1] ttl ms, ARGV[2] phone,
// ARGV[3] email index prefix, ARGV[4..] field/value pairs.
var replaceScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local owner = redis.call("GET", KEYS[2])
if owner and owner ~= ARGV[2] then
  return -1
end
local old = redis.call("HGET", KEYS[1], "email")
if old then
  local oldKey = ARGV[3] .. old
  if oldKey ~= KEYS[2] then
    redis.call("DEL", oldKey)
  end
end
redis.call("HSET", KEYS[1], unpack(ARGV, 4))
redis.call("PEXPIRE", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[1])
return 1
`)

// KEYS[1] phone hash. ARGV[1] expected code, ARGV[2] email index prefix.
var deleteScript = redis.NewScript(`
local code = redis.call("HGET", KEYS[1], "code")
if not code or code ~= ARGV[1] then
  return 0
end
local email = redis.call("HGET", KEYS[1], "email")
redis.call("DEL", KEYS[1])
if email then
  redis.call("DEL", ARGV[2] .. email)
end
return 1
`)

// RedisRepository stores pending registrations as Redis hashes keyed by phone
// with a secondary email index. Keys expire after the code lifetime plus a
// retention window, so abandoned signups disappear without a sweep.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository builds a Redis-backed pending registration store. ttl is
// the key lifetime and must exceed the code lifetime.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

// Create inserts a pending registration unless the phone or email is staged.
func (r *RedisRepository) Create(ctx context.Context, p PendingRegistration) error {
	args := append([]any{r.ttl.Milliseconds(), p.Phone}, hashFields(p)...)
	created, err := createScript.Run(ctx, r.client, []string{redisPhonePrefix + p.Phone, redisEmailPrefix + p.Email}, args...).Int()
	if err != nil {
		return oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	if created == 0 {
		return oops.Code("REGISTRATION_PENDING_CONFLICT").
			Public("a registration for this phone or email is already pending").
			Wrapf(apperr.ErrConflict, "insert pending registration")
	}
	return nil
}

// FindByPhone fetches the pending registration for phone.
func (r *RedisRepository) FindByPhone(ctx context.Context, phone string) (PendingRegistration, error) {
	values, err := r.client.HGetAll(ctx, redisPhonePrefix+phone).Result()
	if err != nil {
		return PendingRegistration{}, oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	if len(values) == 0 {
		return PendingRegistration{}, errPendingNotFound()
	}
	return decodeHash(values)
}

// FindByEmail resolves the email index and fetches the record.
func (r *RedisRepository) FindByEmail(ctx context.Context, email string) (PendingRegistration, error) {
	phone, err := r.client.Get(ctx, redisEmailPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return PendingRegistration{}, errPendingNotFound()
	}
	if err != nil {
		return PendingRegistration{}, oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	return r.FindByPhone(ctx, phone)
}

// Replace overwrites the record keyed by p.Phone and refreshes its lifetime.
func (r *RedisRepository) Replace(ctx context.Context, p PendingRegistration) error {
	args := append([]any{r.ttl.Milliseconds(), p.Phone, redisEmailPrefix}, hashFields(p)...)
	replaced, err := replaceScript.Run(ctx, r.client, []string{redisPhonePrefix + p.Phone, redisEmailPrefix + p.Email}, args...).Int()
	if err != nil {
		return oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	switch replaced {
	case 0:
		return errPendingNotFound()
	case -1:
		return oops.Code("REGISTRATION_PENDING_CONFLICT").Wrapf(apperr.ErrConflict, "email already pending")
	}
	return nil
}

// Delete removes the record for phone if it still carries code.
func (r *RedisRepository) Delete(ctx context.Context, phone, code string) error {
	deleted, err := deleteScript.Run(ctx, r.client, []string{redisPhonePrefix + phone}, code, redisEmailPrefix).Int()
	if err != nil {
		return oops.Code("REGISTRATION_STORE_FAILED").Wrap(err)
	}
	if deleted == 0 {
		return errPendingNotFound()
	}
	return nil
}

// DeleteExpired scans staged records and removes those whose code expired
// before now. Key expiry already bounds how long they linger.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		removed int64
		cursor  uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisPhonePrefix+"*", redisScanCount).Result()
		if err != nil {
			return removed, oops.Code("REGISTRATION_SWEEP_FAILED").Wrap(err)
		}
		for _, key := range keys {
			values, err := r.client.HMGet(ctx, key, "code", "expires_at").Result()
			if err != nil {
				return removed, oops.Code("REGISTRATION_SWEEP_FAILED").With("key", key).Wrap(err)
			}
			code, _ := values[0].(string)
			expiresRaw, _ := values[1].(string)
			expiresAt, err := parseMillis(expiresRaw)
			if code == "" || err != nil || !now.After(expiresAt) {
				continue
			}
			deleted, err := deleteScript.Run(ctx, r.client, []string{key}, code, redisEmailPrefix).Int()
			if err != nil {
				return removed, oops.Code("REGISTRATION_SWEEP_FAILED").With("key", key).Wrap(err)
			}
			removed += int64(deleted)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func hashFields(p PendingRegistration) []any {
	return []any{
		"phone", p.Phone,
		"email", p.Email,
		"name", p.Name,
		"requested_role", p.RequestedRole,
		"code", p.Code,
		"expires_at", strconv.FormatInt(p.ExpiresAt.UnixMilli(), 10),
		"created_at", strconv.FormatInt(p.CreatedAt.UnixMilli(), 10),
	}
}

func decodeHash(values map[string]string) (PendingRegistration, error) {
	expiresAt, err := parseMillis(values["expires_at"])
	if err != nil {
		return PendingRegistration{}, oops.Code("REGISTRATION_STORE_CORRUPT").With("field", "expires_at").Wrap(err)
	}
	createdAt, err := parseMillis(values["created_at"])
	if err != nil {
		return PendingRegistration{}, oops.Code("REGISTRATION_STORE_CORRUPT").With("field", "created_at").Wrap(err)
	}
	return PendingRegistration{
		Phone:         values["phone"],
		Email:         values["email"],
		Name:          values["name"],
		RequestedRole: values["requested_role"],
		Code:          values["code"],
		ExpiresAt:     expiresAt,
		CreatedAt:     createdAt,
	}, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
