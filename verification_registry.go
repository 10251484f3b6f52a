package authcore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/silvermint/authcore/internal"
)

type verificationType string

const (
	verificationEmail verificationType = "email_verification"
	verificationReset verificationType = "password_reset"
)

const (
	codeFieldUserID    = "user_id"
	codeFieldType      = "type"
	codeFieldExpiresAt = "expires_at"
	codeFieldCreatedAt = "created_at"
)

type verificationCode struct {
	UserID    string
	Type      verificationType
	ExpiresAt int64
	CreatedAt int64
}

// issueCodeScript enforces the trailing issuance window and writes the code
// record atomically, so two concurrent requests cannot both slip under the
// limit.
//
// KEYS[1] issuance window ZSET
// KEYS[2] code hash key
// ARGV[1] now (unix seconds)
// ARGV[2] window (seconds)
// ARGV[3] max issuances per window
// ARGV[4] window member (unique per issuance)
// ARGV[5] user id
// ARGV[6] type
// ARGV[7] expires_at (unix seconds)
// ARGV[8] code TTL (seconds)
const issueCodeScript = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", tostring(now - window))
if redis.call("ZCARD", KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("EXPIRE", KEYS[1], window)
redis.call("HSET", KEYS[2],
  "user_id", ARGV[5],
  "type", ARGV[6],
  "expires_at", ARGV[7],
  "created_at", ARGV[1])
redis.call("EXPIRE", KEYS[2], tonumber(ARGV[8]))
return 1
`

var issueCodeLua = redis.NewScript(issueCodeScript)

// consumeCodeScript is the single-consumption guarantee: find, check type
// and expiry, and delete in one step. A matching code is deleted before the
// reply is built, so a second call with the same value can never succeed.
// A type mismatch leaves the record alone; an expired record is removed
// lazily.
//
// KEYS[1] code hash key
// ARGV[1] expected type
// ARGV[2] now (unix seconds)
const consumeCodeScript = `
local data = redis.call("HGETALL", KEYS[1])
if #data == 0 then
  return {0}
end

local fields = {}
for i = 1, #data, 2 do
  fields[data[i]] = data[i + 1]
end

if fields["type"] ~= ARGV[1] then
  return {0}
end
if tonumber(fields["expires_at"] or "0") <= tonumber(ARGV[2]) then
  redis.call("DEL", KEYS[1])
  return {0}
end

redis.call("DEL", KEYS[1])
return {1, fields["user_id"], fields["expires_at"], fields["created_at"]}
`

var consumeCodeLua = redis.NewScript(consumeCodeScript)

// verificationRegistry issues and consumes single-use time-bound codes.
// Codes live in Redis hashes keyed by the code value; password reset
// issuance is throttled through a per-user sliding window ZSET.
type verificationRegistry struct {
	redis  redis.UniversalClient
	prefix string
	config VerificationConfig
}

func newVerificationRegistry(rdb redis.UniversalClient, cfg VerificationConfig) *verificationRegistry {
	prefix := cfg.RedisPrefix
	if prefix == "" {
		prefix = "av"
	}
	return &verificationRegistry{redis: rdb, prefix: prefix, config: cfg}
}

func (r *verificationRegistry) codeKey(code string) string {
	return r.prefix + ":code:" + code
}

func (r *verificationRegistry) windowKey(t verificationType, userID string) string {
	return r.prefix + ":win:" + string(t) + ":" + userID
}

func (r *verificationRegistry) ttl(t verificationType) time.Duration {
	if t == verificationReset {
		return r.config.PasswordResetTTL
	}
	return r.config.EmailVerificationTTL
}

func (r *verificationRegistry) limit(t verificationType) int {
	if t == verificationReset {
		return r.config.ResetRateMax
	}
	// Email verification is unthrottled.
	return 0
}

// Issue creates a fresh code for the user, enforcing the per-type issuance
// window. It returns the code value and its expiry.
func (r *verificationRegistry) Issue(
	ctx context.Context,
	userID string,
	t verificationType,
	now time.Time,
) (code string, expiresAt time.Time, err error) {
	code, err = internal.NewCodeToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrDownstream, err)
	}

	ttl := r.ttl(t)
	expiresAt = now.Add(ttl)

	limit := r.limit(t)
	if limit <= 0 {
		_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.codeKey(code),
				codeFieldUserID, userID,
				codeFieldType, string(t),
				codeFieldExpiresAt, strconv.FormatInt(expiresAt.Unix(), 10),
				codeFieldCreatedAt, strconv.FormatInt(now.Unix(), 10),
			)
			pipe.Expire(ctx, r.codeKey(code), ttl)
			return nil
		})
		if err != nil {
			return "", time.Time{}, fmt.Errorf("%w: %v", ErrDownstream, err)
		}
		return code, expiresAt, nil
	}

	issued, err := issueCodeLua.Run(
		ctx,
		r.redis,
		[]string{r.windowKey(t, userID), r.codeKey(code)},
		now.Unix(),
		int64(r.config.ResetRateWindow.Seconds()),
		limit,
		internal.NewID(),
		userID,
		string(t),
		expiresAt.Unix(),
		int64(ttl.Seconds()),
	).Int64()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	if issued == 0 {
		return "", time.Time{}, ErrRateLimited
	}
	return code, expiresAt, nil
}

// Consume atomically claims a code of the expected type. Exactly one call
// per code value can ever succeed.
func (r *verificationRegistry) Consume(
	ctx context.Context,
	code string,
	t verificationType,
	now time.Time,
) (*verificationCode, error) {
	result, err := consumeCodeLua.Run(
		ctx,
		r.redis,
		[]string{r.codeKey(code)},
		string(t),
		now.Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid consume script response", ErrDownstream)
	}
	status, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid consume script status", ErrDownstream)
	}
	if status == 0 {
		return nil, ErrCodeInvalid
	}
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: short consume script response", ErrDownstream)
	}

	userID, err := scriptString(parts[1])
	if err != nil {
		return nil, err
	}
	expires, err := scriptInt(parts[2])
	if err != nil {
		return nil, err
	}
	created, err := scriptInt(parts[3])
	if err != nil {
		return nil, err
	}

	return &verificationCode{
		UserID:    userID,
		Type:      t,
		ExpiresAt: expires,
		CreatedAt: created,
	}, nil
}

func scriptString(v interface{}) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("%w: invalid script field %T", ErrDownstream, v)
	}
}

func scriptInt(v interface{}) (int64, error) {
	s, err := scriptString(v)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid script integer %q", ErrDownstream, s)
	}
	return n, nil
}
