// Package httpapi is the HTTP surface of goMail: JSON endpoints under /api,
// page shells for the browser client, and static assets.
//
// [New] wraps the whole router in the access gate, so a handler never runs
// for a protected path without a verified identity in its context. Handlers
// read the caller only through goMail.IdentityFromContext.
package httpapi
