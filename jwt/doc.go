// Package jwt issues and verifies the signed session tokens carried in the
// session cookie.
//
// # Token shape
//
// Tokens are HS256 (default) or EdDSA JWTs with the subject id in both the
// "id" and "sub" claims, plus "iat", "exp" and an optional "iss". The
// validity window is fixed by [Config.TTL].
//
// # What this package must NOT do
//
//   - Read cookies or headers (see package session and package middleware).
//   - Let [PeekSubject] output reach an authorization or data-scoping decision.
package jwt
