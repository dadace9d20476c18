package rate

import "errors"

var (
	// ErrRateLimited is returned when a budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis failure seen by the limiter.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
