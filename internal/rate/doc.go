// Package rate provides the Redis-backed rate limits used by login and signup.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - gm:rl:login:   failed logins per email
//   - gm:rl:loginip: failed logins per client IP
//   - gm:rl:signup:  signups per client IP
//
// Login budgets count failures only; a successful login resets them. Signup
// budgets count every attempt.
package rate
