package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrMalformedToken is returned by [PeekSubject] when the token is not three
	// dot-separated segments or the payload segment is not base64url or standard
	// base64 JSON.
	ErrMalformedToken = errors.New("malformed token")
	// ErrNoSubject is returned by [PeekSubject] when the payload has no id claim.
	ErrNoSubject = errors.New("token has no subject")
)

// PeekSubject decodes the payload segment of tokenStr WITHOUT verifying its
// signature and returns the "id" claim.
//
// The result is attacker-controlled. It may be used to annotate logs and audit
// events about rejected tokens; it must never decide access or scope a query.
// Identity for those purposes comes from [Manager.Verify].
func PeekSubject(tokenStr string) (string, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return "", ErrMalformedToken
	}

	seg := strings.TrimRight(parts[1], "=")
	payload, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		// Some encoders emit the standard alphabet.
		payload, err = base64.RawStdEncoding.DecodeString(seg)
	}
	if err != nil {
		return "", ErrMalformedToken
	}

	var claims struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", ErrMalformedToken
	}
	if claims.ID == "" {
		return "", ErrNoSubject
	}

	return claims.ID, nil
}
