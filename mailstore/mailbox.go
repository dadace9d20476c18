package mailstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Entry is one message as seen from one user's mailbox.
type Entry struct {
	Message *MessageRecord
	Status  Status
}

const (
	transitionMissing  int64 = -1
	transitionConflict int64 = -2
	transitionNoop     int64 = 0
	transitionApplied  int64 = 1
)

// KEYS[1] box hash; ARGV[1] message id; ARGV[2] target; ARGV[3..] allowed sources.
const transitionScript = `
local cur = redis.call("HGET", KEYS[1], ARGV[1])
if not cur then
  return -1
end
if cur == ARGV[2] then
  return 0
end
for i = 3, #ARGV do
  if cur == ARGV[i] then
    redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
    return 1
  end
end
return -2
`

var transitionLua = redis.NewScript(transitionScript)

// Mailbox returns every entry in userID's mailbox, newest first. Relations
// whose message document is missing are skipped.
func (s *Store) Mailbox(ctx context.Context, userID string) ([]Entry, error) {
	ids, err := s.redis.ZRevRange(ctx, s.boxIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return []Entry{}, nil
	}

	statuses, err := s.redis.HGetAll(ctx, s.boxKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	docs, err := s.messages(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		st, ok := statuses[id]
		if !ok {
			continue
		}
		msg, ok := docs[id]
		if !ok {
			continue
		}
		out = append(out, Entry{Message: msg, Status: Status(st)})
	}

	return out, nil
}

// Status returns the status of messageID in userID's mailbox.
func (s *Store) Status(ctx context.Context, userID, messageID string) (Status, error) {
	st, err := s.redis.HGet(ctx, s.boxKey(userID), messageID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoRelation
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Status(st), nil
}

// Transition atomically moves messageID in userID's mailbox to target when the
// current status is one of from. It returns false with a nil error when the
// entry already has the target status.
func (s *Store) Transition(ctx context.Context, userID, messageID string, target Status, from ...Status) (bool, error) {
	if !target.Valid() {
		return false, fmt.Errorf("invalid target status %q", target)
	}

	args := make([]interface{}, 0, 2+len(from))
	args = append(args, messageID, string(target))
	for _, f := range from {
		args = append(args, string(f))
	}

	code, err := transitionLua.Run(ctx, s.redis, []string{s.boxKey(userID)}, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case transitionApplied:
		return true, nil
	case transitionNoop:
		return false, nil
	case transitionMissing:
		return false, ErrNoRelation
	case transitionConflict:
		return false, ErrStatusConflict
	default:
		return false, fmt.Errorf("%w: unknown transition status %d", ErrRedisUnavailable, code)
	}
}

// MarkRead moves an unread message to read. Marking an already read message
// is a successful no-op.
func (s *Store) MarkRead(ctx context.Context, userID, messageID string) (bool, error) {
	return s.Transition(ctx, userID, messageID, StatusRead, StatusUnread)
}

// Counts returns the number of status relations and index entries in userID's
// mailbox. The two are equal unless the store was modified outside this package.
func (s *Store) Counts(ctx context.Context, userID string) (relations, indexed int64, err error) {
	var hlen *redis.IntCmd
	var zcard *redis.IntCmd
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		hlen = pipe.HLen(ctx, s.boxKey(userID))
		zcard = pipe.ZCard(ctx, s.boxIndexKey(userID))
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return hlen.Val(), zcard.Val(), nil
}
