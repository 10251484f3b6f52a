package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session exists for the given ID.
var ErrNotFound = errors.New("session not found")

// ErrExpired is returned when the session exists but its lifetime has passed.
var ErrExpired = errors.New("session expired")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	fieldUserID    = "user_id"
	fieldUserAgent = "user_agent"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

const (
	rotateStatusNotFound   int64 = 0
	rotateStatusExpired    int64 = 1
	rotateStatusUnchanged  int64 = 2
	rotateStatusExtended   int64 = 3
	rotateReplyMinElements       = 5
)

// rotateScript implements the refresh decision atomically: load the session,
// reject it when missing or past expiry, and extend the lifetime only when it
// has entered the final stretch (remaining <= threshold). Concurrent refreshes
// against the same session therefore converge on a single extension instead
// of racing a read-modify-write.
//
// KEYS[1] session hash
// ARGV[1] session ID
// ARGV[2] user index key prefix
// ARGV[3] now (unix seconds)
// ARGV[4] rotation threshold (seconds)
// ARGV[5] extended lifetime (seconds)
const rotateScript = `
local data = redis.call("HGETALL", KEYS[1])
if #data == 0 then
  return {0}
end

local fields = {}
for i = 1, #data, 2 do
  fields[data[i]] = data[i + 1]
end

local now = tonumber(ARGV[3])
local expires_at = tonumber(fields["expires_at"] or "0")
local user_key = ARGV[2] .. fields["user_id"]

if expires_at <= now then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", user_key, ARGV[1])
  return {1}
end

if expires_at - now > tonumber(ARGV[4]) then
  return {2, fields["user_id"], fields["user_agent"], fields["created_at"], fields["expires_at"]}
end

local new_expires = now + tonumber(ARGV[5])
redis.call("HSET", KEYS[1], "expires_at", new_expires)
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[5]))
return {3, fields["user_id"], fields["user_agent"], fields["created_at"], tostring(new_expires)}
`

var rotateLua = redis.NewScript(rotateScript)

// deleteScript removes the session and its user-index entry together.
//
// KEYS[1] session hash
// ARGV[1] session ID
// ARGV[2] user index key prefix
const deleteScript = `
local user_id = redis.call("HGET", KEYS[1], "user_id")
if not user_id then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. user_id, ARGV[1])
return 1
`

var deleteLua = redis.NewScript(deleteScript)

// Store is a Redis-backed session store handling persistence, lazy
// expiration, per-user indexing, and the atomic extend-on-refresh decision.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; an empty prefix defaults to "as".
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "as"
	}
	return &Store{
		redis:  rdb,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + "u:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Save persists sess with a TTL matching its expiry and indexes it under the
// owning user.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", ttl)
	}

	key := s.key(sess.ID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldUserID, sess.UserID,
			fieldUserAgent, sess.UserAgent,
			fieldCreatedAt, strconv.FormatInt(sess.CreatedAt, 10),
			fieldExpiresAt, strconv.FormatInt(sess.ExpiresAt, 10),
		)
		pipe.Expire(ctx, key, ttl)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a session by ID. An expired record is deleted lazily and
// reported as [ErrExpired].
func (s *Store) Get(ctx context.Context, sessionID string, now time.Time) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	sess, err := sessionFromFields(sessionID, fields)
	if err != nil {
		return nil, err
	}

	if sess.ExpiresAt <= now.Unix() {
		if err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	return sess, nil
}

// RotateOnRefresh applies the refresh decision for sessionID atomically.
// When the remaining lifetime is at or below threshold the session is
// extended to now+extendTo and extended reports true; otherwise the session
// is returned unchanged. Missing and expired sessions map to [ErrNotFound]
// and [ErrExpired] respectively, with expired records removed as a side
// effect.
func (s *Store) RotateOnRefresh(
	ctx context.Context,
	sessionID string,
	now time.Time,
	threshold, extendTo time.Duration,
) (sess *Session, extended bool, err error) {
	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID)},
		sessionID,
		s.userKeyPrefix(),
		now.Unix(),
		int64(threshold.Seconds()),
		int64(extendTo.Seconds()),
	).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, false, fmt.Errorf("%w: invalid rotate script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, false, fmt.Errorf("%w: invalid rotate script status", ErrRedisUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return nil, false, ErrNotFound
	case rotateStatusExpired:
		return nil, false, ErrExpired
	case rotateStatusUnchanged, rotateStatusExtended:
		if len(parts) < rotateReplyMinElements {
			return nil, false, fmt.Errorf("%w: short rotate script response", ErrRedisUnavailable)
		}
		sess, err := sessionFromScript(sessionID, parts[1:])
		if err != nil {
			return nil, false, err
		}
		return sess, code == rotateStatusExtended, nil
	default:
		return nil, false, fmt.Errorf("%w: unknown rotate script status %d", ErrRedisUnavailable, code)
	}
}

// Delete removes a session and its index entry. Deleting a missing session
// is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	err := deleteLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID)},
		sessionID,
		s.userKeyPrefix(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every indexed session for userID. A session saved
// concurrently with this call may survive; it expires on its own TTL.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range sessionIDs {
			pipe.Del(ctx, s.key(id))
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ListForUser returns the user's live sessions, newest first. Expired but
// still-indexed records are skipped.
func (s *Store) ListForUser(ctx context.Context, userID string, now time.Time) ([]*Session, error) {
	sessionIDs, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(sessionIDs) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(sessionIDs))
	for i, id := range sessionIDs {
		cmds[i] = pipe.HGetAll(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	nowUnix := now.Unix()
	sessions := make([]*Session, 0, len(sessionIDs))
	for i, cmd := range cmds {
		fields, cmdErr := cmd.Result()
		if cmdErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if len(fields) == 0 {
			continue
		}
		sess, parseErr := sessionFromFields(sessionIDs[i], fields)
		if parseErr != nil {
			return nil, parseErr
		}
		if sess.ExpiresAt <= nowUnix {
			continue
		}
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt > sessions[j].CreatedAt
	})

	return sessions, nil
}

func sessionFromFields(sessionID string, fields map[string]string) (*Session, error) {
	createdAt, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s: invalid created_at: %v", sessionID, err)
	}
	expiresAt, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s: invalid expires_at: %v", sessionID, err)
	}
	return &Session{
		ID:        sessionID,
		UserID:    fields[fieldUserID],
		UserAgent: fields[fieldUserAgent],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

func sessionFromScript(sessionID string, parts []interface{}) (*Session, error) {
	strs := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case string:
			strs[i] = v
		case []byte:
			strs[i] = string(v)
		default:
			return nil, fmt.Errorf("%w: invalid rotate script field %T", ErrRedisUnavailable, p)
		}
	}
	fields := map[string]string{
		fieldUserID:    strs[0],
		fieldUserAgent: strs[1],
		fieldCreatedAt: strs[2],
		fieldExpiresAt: strs[3],
	}
	return sessionFromFields(sessionID, fields)
}
