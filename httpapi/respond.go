package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	goMail "github.com/MrEthical07/goMail"
)

const (
	msgInvalidBody     = "Invalid request body"
	msgBodyTooLarge    = "Request body too large"
	msgRateLimited     = "Too many requests"
	msgInternalAuth    = "Internal server error"
	msgInternalMail    = "Internal Server Error"
	msgUserNotFound    = "User not found"
	msgBadCredentials  = "Invalid email or password"
	msgEmailInUse      = "Email already in use"
	msgNotInInbox      = "Email not found in inbox"
	msgMessageNotFound = "Email not found"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reports false after writing the error response itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// fail maps engine errors shared by every route. internalMsg is the text for
// unexpected failures, whose cause is logged and never sent.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	var inputErr *goMail.InputError
	switch {
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, inputErr.Message)
	case errors.Is(err, goMail.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
	case errors.Is(err, goMail.ErrUserNotFound):
		writeError(w, http.StatusNotFound, msgUserNotFound)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, internalMsg)
	}
}

// identity is always present behind RequireIdentity.
func identity(r *http.Request) goMail.Identity {
	id, _ := goMail.IdentityFromContext(r.Context())
	return id
}
