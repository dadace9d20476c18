package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	goMail "github.com/MrEthical07/goMail"
)

// RequireIdentity answers 401 with a JSON error when the request carries no
// verified identity. It guards handlers against being mounted outside Gate.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := goMail.IdentityFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP stores the caller's address in the request context for rate
// limiting and audit. With trustProxy set, the first X-Forwarded-For entry
// wins over RemoteAddr.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ""
			if trustProxy {
				if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
					ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
				}
			}
			if ip == "" {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				ip = host
			}
			next.ServeHTTP(w, r.WithContext(goMail.WithClientIP(r.Context(), ip)))
		})
	}
}
