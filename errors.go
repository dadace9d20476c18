package goMail

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned by Signup when the email is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrUserNotFound is returned when the user behind an identity no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrMessageNotFound is returned when the caller has no mailbox entry for a message.
	ErrMessageNotFound = errors.New("message not found")
	// ErrMessageNotInInbox is returned by MarkRead when the message is not unread or read in the caller's mailbox.
	ErrMessageNotInInbox = errors.New("message not in inbox")
	// ErrInvalidInput is wrapped by every *InputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited is returned when a login or signup budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenInvalid is returned by Authenticate for any token that fails verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned by Authenticate for a well-signed token past its exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// InputError reports a request field that failed validation. Message is safe
// to show to the client.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, message string) error {
	return &InputError{Field: field, Message: message}
}
