package mailstore

import "errors"

var (
	// ErrEmailTaken is returned by CreateUser when the email index already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when no user document matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrMessageNotFound is returned when a message document is missing.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNoRelation is returned when the user has no mailbox entry for a message.
	ErrNoRelation = errors.New("message not in mailbox")
	// ErrStatusConflict is returned by Transition when the current status is not
	// one of the allowed source statuses.
	ErrStatusConflict = errors.New("mailbox status conflict")
	// ErrRedisUnavailable wraps any Redis transport or script failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrCorruptRecord is returned when a stored document cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
)
