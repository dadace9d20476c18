package session

import (
	"errors"
	"net/http"
	"time"
)

// CookieName is the name of the cookie holding the session token.
const CookieName = "token"

// DefaultMaxAge matches the validity window of issued tokens.
const DefaultMaxAge = 24 * time.Hour

// ErrNoCookie is returned by [TokenFromRequest] when the request carries no
// usable session cookie.
var ErrNoCookie = errors.New("session cookie not present")

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	// Secure marks the cookie https-only. Turn it off only in development.
	Secure bool
	// MaxAge is the cookie lifetime. Zero means DefaultMaxAge.
	MaxAge time.Duration
	Domain string
}

// SetCookie writes the session token to w as an http-only, same-site strict cookie.
func SetCookie(w http.ResponseWriter, token string, cfg CookieConfig) {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie instructs the browser to drop the session cookie.
func ClearCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// TokenFromRequest returns the raw session token from r's cookies.
func TokenFromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", ErrNoCookie
	}
	return c.Value, nil
}
