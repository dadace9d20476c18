// Package goMail is the engine of a small webmail service: accounts, cookie
// sessions backed by signed JWTs, and per-user mailboxes stored in Redis.
//
// An [Engine] is assembled by [Builder.Build] and is safe for concurrent use.
//
// # Identity
//
// [Engine.Authenticate] is the only way from a session token to a user id.
// The access gate in the middleware package calls it once per request and
// stores the result with [WithIdentity]; handlers read it back with
// [IdentityFromContext] and scope every store access by that id.
//
// # Mailboxes
//
// Each (user, message) pair has exactly one [Status]. Moves between statuses
// are single Redis scripts, and sending a message writes the document and all
// relations in one MULTI/EXEC.
//
// # What this package must NOT do
//
//   - Trust an unverified token payload for anything but audit annotations.
//   - Return password hashes or another user's Bcc list.
//   - Log plaintext passwords or token strings.
package goMail
