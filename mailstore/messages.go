package mailstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Attachment describes a file referenced by a message. Content is stored
// elsewhere; only the reference is kept here.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// MessageRecord is the stored JSON document of a message.
type MessageRecord struct {
	ID          string       `json:"id"`
	SenderID    string       `json:"sender_id"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Cc          []string     `json:"cc"`
	Bcc         []string     `json:"bcc"`
	Subject     string       `json:"subject"`
	Body        string       `json:"message"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Deliver stores msg and creates the mailbox relations in one MULTI/EXEC:
// StatusSent for the sender and StatusUnread for every recipient id. A
// recipient equal to the sender ends up unread, so self-addressed mail lands
// in the inbox.
func (s *Store) Deliver(ctx context.Context, msg *MessageRecord, recipientIDs []string) error {
	if msg.SenderID == "" {
		return errors.New("message has no sender")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	doc, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	score := float64(msg.CreatedAt.UnixMilli())

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.messageKey(msg.ID), doc, 0)
		pipe.HSet(ctx, s.boxKey(msg.SenderID), msg.ID, string(StatusSent))
		pipe.ZAdd(ctx, s.boxIndexKey(msg.SenderID), redis.Z{Score: score, Member: msg.ID})
		for _, rid := range recipientIDs {
			pipe.HSet(ctx, s.boxKey(rid), msg.ID, string(StatusUnread))
			pipe.ZAdd(ctx, s.boxIndexKey(rid), redis.Z{Score: score, Member: msg.ID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Message loads one message document.
func (s *Store) Message(ctx context.Context, id string) (*MessageRecord, error) {
	raw, err := s.redis.Get(ctx, s.messageKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeMessage(raw)
}

func (s *Store) messages(ctx context.Context, ids []string) (map[string]*MessageRecord, error) {
	out := make(map[string]*MessageRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.messageKey(id)
	}
	vals, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		msg, err := decodeMessage([]byte(raw))
		if err != nil {
			return nil, err
		}
		out[msg.ID] = msg
	}

	return out, nil
}

func decodeMessage(raw []byte) (*MessageRecord, error) {
	var msg MessageRecord
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: message without id", ErrCorruptRecord)
	}
	return &msg, nil
}
