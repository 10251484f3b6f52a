package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userFieldName          = "name"
	userFieldEmail         = "email"
	userFieldDigest        = "password_digest"
	userFieldEmailVerified = "email_verified"
	userFieldMFAEnabled    = "mfa_enabled"
	userFieldTOTPSecret    = "totp_secret"
	userFieldCreatedAt     = "created_at"
	userFieldUpdatedAt     = "updated_at"
)

// createUserScript claims the email index and writes the user record in one
// step. SET NX on the index is the uniqueness guarantee: two concurrent
// registrations for the same email race on that single command and only one
// wins.
//
// KEYS[1] email index key
// KEYS[2] user hash key
// ARGV[1] user id
// ARGV[2] name
// ARGV[3] email
// ARGV[4] password digest
// ARGV[5] created_at (unix seconds)
const createUserScript = `
if not redis.call("SET", KEYS[1], ARGV[1], "NX") then
  return 0
end
redis.call("HSET", KEYS[2],
  "name", ARGV[2],
  "email", ARGV[3],
  "password_digest", ARGV[4],
  "email_verified", "0",
  "mfa_enabled", "0",
  "totp_secret", "",
  "created_at", ARGV[5],
  "updated_at", ARGV[5])
return 1
`

var createUserLua = redis.NewScript(createUserScript)

// updateUserScript applies field updates only when the record exists, so a
// flow never resurrects a deleted user as a partial hash.
//
// KEYS[1] user hash key
// ARGV    alternating field, value pairs
const updateUserScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
for i = 1, #ARGV, 2 do
  redis.call("HSET", KEYS[1], ARGV[i], ARGV[i + 1])
end
return 1
`

var updateUserLua = redis.NewScript(updateUserScript)

// setSecretScript writes the TOTP secret only when none is stored, making
// enrollment-cycle secret assignment at-most-once even under concurrent
// setup calls. Returns 0 missing user, 1 written, 2 secret already present.
//
// KEYS[1] user hash key
// ARGV[1] secret
// ARGV[2] updated_at
const setSecretScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local cur = redis.call("HGET", KEYS[1], "totp_secret")
if cur and cur ~= "" then
  return 2
end
redis.call("HSET", KEYS[1], "totp_secret", ARGV[1], "updated_at", ARGV[2])
return 1
`

var setSecretLua = redis.NewScript(setSecretScript)

var errSecretAlreadySet = errors.New("totp secret already set")

// credentialStore persists user identity in Redis: a hash per user plus a
// unique email index. Emails are case-normalized before every read or write.
type credentialStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newCredentialStore(rdb redis.UniversalClient) *credentialStore {
	return &credentialStore{redis: rdb, prefix: "au"}
}

func (s *credentialStore) userKey(id string) string {
	return s.prefix + ":user:" + id
}

func (s *credentialStore) emailKey(email string) string {
	return s.prefix + ":email:" + email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create persists a new user, failing with ErrEmailExists when the email is
// already claimed.
func (s *credentialStore) Create(ctx context.Context, u *User) error {
	email := normalizeEmail(u.Email)
	created, err := createUserLua.Run(
		ctx,
		s.redis,
		[]string{s.emailKey(email), s.userKey(u.ID)},
		u.ID,
		u.Name,
		email,
		u.PasswordDigest,
		strconv.FormatInt(u.CreatedAt, 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	if created == 0 {
		return ErrEmailExists
	}
	u.Email = email
	return nil
}

// GetByEmail resolves the email index and loads the user.
func (s *credentialStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(normalizeEmail(email))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	return s.GetByID(ctx, id)
}

// GetByID loads a user record.
func (s *credentialStore) GetByID(ctx context.Context, id string) (*User, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return userFromFields(id, fields)
}

// MarkEmailVerified flips the verification flag.
func (s *credentialStore) MarkEmailVerified(ctx context.Context, id string, now time.Time) error {
	return s.update(ctx, id, now, userFieldEmailVerified, "1")
}

// UpdatePasswordDigest replaces the stored digest.
func (s *credentialStore) UpdatePasswordDigest(ctx context.Context, id, digest string, now time.Time) error {
	return s.update(ctx, id, now, userFieldDigest, digest)
}

// SetTOTPSecret stores the enrollment secret, at most once per enrollment
// cycle. errSecretAlreadySet reports a lost race or an existing pending
// secret.
func (s *credentialStore) SetTOTPSecret(ctx context.Context, id, secret string, now time.Time) error {
	status, err := setSecretLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(id)},
		secret,
		strconv.FormatInt(now.Unix(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	switch status {
	case 0:
		return ErrNotFound
	case 2:
		return errSecretAlreadySet
	default:
		return nil
	}
}

// EnableMFA marks the pending secret as active.
func (s *credentialStore) EnableMFA(ctx context.Context, id string, now time.Time) error {
	return s.update(ctx, id, now, userFieldMFAEnabled, "1")
}

// DisableMFA clears both the flag and the secret so the next enrollment
// starts fresh.
func (s *credentialStore) DisableMFA(ctx context.Context, id string, now time.Time) error {
	return s.update(ctx, id, now, userFieldMFAEnabled, "0", userFieldTOTPSecret, "")
}

func (s *credentialStore) update(ctx context.Context, id string, now time.Time, pairs ...string) error {
	argv := make([]interface{}, 0, len(pairs)+2)
	for _, p := range pairs {
		argv = append(argv, p)
	}
	argv = append(argv, userFieldUpdatedAt, strconv.FormatInt(now.Unix(), 10))

	updated, err := updateUserLua.Run(ctx, s.redis, []string{s.userKey(id)}, argv...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

func userFromFields(id string, fields map[string]string) (*User, error) {
	createdAt, err := strconv.ParseInt(fields[userFieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s: invalid created_at", ErrDownstream, id)
	}
	updatedAt, err := strconv.ParseInt(fields[userFieldUpdatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s: invalid updated_at", ErrDownstream, id)
	}
	return &User{
		ID:             id,
		Name:           fields[userFieldName],
		Email:          fields[userFieldEmail],
		PasswordDigest: fields[userFieldDigest],
		EmailVerified:  fields[userFieldEmailVerified] == "1",
		MFAEnabled:     fields[userFieldMFAEnabled] == "1",
		TOTPSecret:     fields[userFieldTOTPSecret],
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}
