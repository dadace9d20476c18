// Package middleware holds the HTTP adapters that sit in front of the mail
// handlers.
//
// # Access gate
//
// [Gate] lets public routes through and requires a verified session cookie
// for everything else. Any failure redirects to the site root. On success the
// verified identity is stored in the request context, where handlers read it
// with goMail.IdentityFromContext.
//
// # What this package must NOT do
//
//   - Trust an unverified token payload. jwt.PeekSubject is used only to
//     annotate denial audit events.
//   - Access Redis (the Engine handles I/O).
package middleware
