package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	goMail "github.com/MrEthical07/goMail"
	"github.com/MrEthical07/goMail/jwt"
	"github.com/MrEthical07/goMail/session"
)

// Authenticator verifies a session token. *goMail.Engine implements it.
type Authenticator interface {
	Authenticate(token string) (goMail.Identity, error)
}

// Recorder receives gate outcomes for metrics and audit. *goMail.Engine
// implements it.
type Recorder interface {
	RecordGateAllowed()
	RecordGateDenial(ctx context.Context, reason, claimedUserID string)
}

// GateOptions configures [Gate].
type GateOptions struct {
	// Public defaults to DefaultPublicRoutes when empty.
	Public PublicRoutes
	// RedirectTo defaults to "/".
	RedirectTo string
	Recorder   Recorder
	Logger     *slog.Logger
}

// Gate returns middleware that requires a verified session cookie on every
// non-public path. A missing, invalid or expired token answers 302 to
// RedirectTo; the reason is recorded but never shown to the client.
func Gate(auth Authenticator, opts GateOptions) func(http.Handler) http.Handler {
	if opts.Public.empty() {
		opts.Public = DefaultPublicRoutes()
	}
	if opts.RedirectTo == "" {
		opts.RedirectTo = "/"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Public.Match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if auth == nil {
				deny(w, r, opts, goMail.GateReasonInvalidToken, "")
				return
			}

			token, err := session.TokenFromRequest(r)
			if err != nil {
				deny(w, r, opts, goMail.GateReasonMissingToken, "")
				return
			}

			id, err := auth.Authenticate(token)
			if err != nil {
				reason := goMail.GateReasonInvalidToken
				if errors.Is(err, goMail.ErrTokenExpired) {
					reason = goMail.GateReasonExpiredToken
				}
				claimed, _ := jwt.PeekSubject(token)
				deny(w, r, opts, reason, claimed)
				return
			}

			if opts.Recorder != nil {
				opts.Recorder.RecordGateAllowed()
			}
			next.ServeHTTP(w, r.WithContext(goMail.WithIdentity(r.Context(), id)))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, opts GateOptions, reason, claimed string) {
	if opts.Recorder != nil {
		opts.Recorder.RecordGateDenial(r.Context(), reason, claimed)
	}
	if opts.Logger != nil {
		opts.Logger.Debug("gate denied", "path", r.URL.Path, "reason", reason)
	}
	http.Redirect(w, r, opts.RedirectTo, http.StatusFound)
}
