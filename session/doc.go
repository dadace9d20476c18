// Package session carries the signed session token between server and browser
// in an http-only cookie.
//
// The cookie holds the token only; there is no server-side session record, so
// clearing the cookie is the whole of logout and a copied token stays valid
// until its exp claim passes.
//
// # What this package must NOT do
//
//   - Parse, verify, or mint tokens (see package jwt).
//   - Import goMail or any store.
package session
