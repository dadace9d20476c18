// Package mailstore persists users, messages, and per-user mailbox relations in Redis.
//
// # Key layout
//
//	<prefix>:u:<id>       hash   user document
//	<prefix>:e:<email>    string email index -> user id
//	<prefix>:m:<id>       string JSON message document
//	<prefix>:b:<uid>      hash   message id -> Status
//	<prefix>:bi:<uid>     zset   message id scored by creation time (ms)
//
// Each (user, message) pair has exactly one [Status]. Status changes run as a
// single Lua compare-and-set so concurrent moves cannot duplicate or lose a
// relation. Delivery of a message writes the document and every relation in
// one MULTI/EXEC.
//
// # What this package must NOT do
//
//   - Hash passwords or verify credentials.
//   - Decide who may read a message; callers pass the verified user id.
package mailstore
