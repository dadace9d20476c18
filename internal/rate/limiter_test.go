package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, cfg), mr
}

func TestLoginBudgetBlocksAfterMaxFailures(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.CheckLogin(ctx, "a@x.io", ""), "attempt %d", i)
		require.NoError(t, l.IncrementLogin(ctx, "a@x.io", ""), "attempt %d", i)
	}

	assert.ErrorIs(t, l.CheckLogin(ctx, "a@x.io", ""), ErrRateLimited)
	assert.NoError(t, l.CheckLogin(ctx, "b@x.io", ""), "other email should not be limited")
}

func TestLoginEmailKeyIsCaseInsensitive(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "A@X.io", "")
	assert.ErrorIs(t, l.CheckLogin(ctx, "a@x.io", ""), ErrRateLimited)
}

func TestResetLoginClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@x.io", "10.0.0.1")
	require.NoError(t, l.ResetLogin(ctx, "a@x.io", "10.0.0.1"))

	n, err := l.LoginAttempts(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, l.CheckLogin(ctx, "a@x.io", "10.0.0.1"), "budget should be restored")
}

func TestLoginIPThrottle(t *testing.T) {
	l, _ := newTestLimiter(t, Config{EnableIPThrottle: true, MaxLoginAttempts: 2, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@x.io", "10.0.0.1")
	_ = l.IncrementLogin(ctx, "b@x.io", "10.0.0.1")

	assert.ErrorIs(t, l.CheckLogin(ctx, "c@x.io", "10.0.0.1"), ErrRateLimited, "IP budget should block a fresh email")
	assert.NoError(t, l.CheckLogin(ctx, "c@x.io", "10.0.0.2"), "other IP should pass")
}

func TestLoginWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@x.io", "")
	require.ErrorIs(t, l.CheckLogin(ctx, "a@x.io", ""), ErrRateLimited)

	mr.FastForward(61 * time.Second)
	assert.NoError(t, l.CheckLogin(ctx, "a@x.io", ""), "window should expire")
}

func TestEnforceSignup(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxSignupsPerIP: 2, SignupWindow: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, l.EnforceSignup(ctx, "10.0.0.9"), "signup %d", i)
	}
	assert.ErrorIs(t, l.EnforceSignup(ctx, "10.0.0.9"), ErrRateLimited)
	assert.NoError(t, l.EnforceSignup(ctx, ""), "empty ip must not be limited")
}

func TestRedisFailureIsWrapped(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	mr.Close()

	assert.ErrorIs(t, l.CheckLogin(context.Background(), "a@x.io", ""), ErrRedisUnavailable)
}
