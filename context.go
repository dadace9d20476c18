package goMail

import (
	"context"
	"time"
)

type identityContextKey struct{}
type clientIPContextKey struct{}

// Identity is the verified subject of a session token.
//
// An Identity only ever comes from a token whose signature, algorithm and
// expiry were checked. Handlers scope every read and write by Identity.UserID.
type Identity struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// WithIdentity attaches a verified identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity placed by the access gate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP rate limiting and audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the address stored by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
