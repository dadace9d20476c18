package mailstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UserRecord is the stored form of an account.
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const createUserScript = `
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[2],
  "id", ARGV[1],
  "name", ARGV[2],
  "email", ARGV[3],
  "password_hash", ARGV[4],
  "created_at", ARGV[5],
  "updated_at", ARGV[5])
return 1
`

var createUserLua = redis.NewScript(createUserScript)

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new account. The email index and the user document are
// written by one script, so two concurrent signups for the same address leave
// exactly one record. An empty rec.ID is filled with a random UUID.
func (s *Store) CreateUser(ctx context.Context, rec *UserRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Email = NormalizeEmail(rec.Email)
	now := s.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	created, err := createUserLua.Run(
		ctx,
		s.redis,
		[]string{s.emailKey(rec.Email), s.userKey(rec.ID)},
		rec.ID,
		rec.Name,
		rec.Email,
		rec.PasswordHash,
		now.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return ErrEmailTaken
	}

	return nil
}

// UserByID loads a user document.
func (s *Store) UserByID(ctx context.Context, id string) (*UserRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}
	return decodeUser(fields)
}

// UserByEmail resolves the email index and loads the user document.
func (s *Store) UserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	id, err := s.redis.Get(ctx, s.emailKey(NormalizeEmail(email))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.UserByID(ctx, id)
}

// UserIDsByEmail resolves many addresses at once. Unregistered addresses are
// absent from the result.
func (s *Store) UserIDsByEmail(ctx context.Context, emails []string) (map[string]string, error) {
	out := make(map[string]string, len(emails))
	if len(emails) == 0 {
		return out, nil
	}

	keys := make([]string, len(emails))
	for i, e := range emails {
		keys[i] = s.emailKey(NormalizeEmail(e))
	}

	vals, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	for i, v := range vals {
		if id, ok := v.(string); ok && id != "" {
			out[NormalizeEmail(emails[i])] = id
		}
	}

	return out, nil
}

// UsersByID loads many user documents in one pipeline. Missing users are
// absent from the result.
func (s *Store) UsersByID(ctx context.Context, ids []string) (map[string]*UserRecord, error) {
	out := make(map[string]*UserRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.userKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := decodeUser(fields)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = rec
	}

	return out, nil
}

// UpdatePasswordHash replaces the stored hash of an existing user.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	key := s.userKey(id)
	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if exists == 0 {
		return ErrUserNotFound
	}

	if err := s.redis.HSet(ctx, key, "password_hash", hash, "updated_at", s.now().UTC().UnixMilli()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func decodeUser(fields map[string]string) (*UserRecord, error) {
	rec := &UserRecord{
		ID:           fields["id"],
		Name:         fields["name"],
		Email:        fields["email"],
		PasswordHash: fields["password_hash"],
	}
	if rec.ID == "" || rec.Email == "" {
		return nil, fmt.Errorf("%w: user document missing id or email", ErrCorruptRecord)
	}

	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", ErrCorruptRecord, err)
	}
	updated, err := strconv.ParseInt(fields["updated_at"], 10, 64)
	if err != nil {
		updated = created
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	rec.UpdatedAt = time.UnixMilli(updated).UTC()

	return rec, nil
}
