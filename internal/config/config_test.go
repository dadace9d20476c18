package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goMail "github.com/MrEthical07/goMail"
)

var envKeys = []string{
	"GOMAIL_ENV", "GOMAIL_LISTEN", "GOMAIL_ADMIN_LISTEN", "GOMAIL_STATIC_DIR",
	"GOMAIL_REDIS_ADDR", "GOMAIL_REDIS_PASSWORD", "GOMAIL_REDIS_DB",
	"GOMAIL_JWT_SECRET", "GOMAIL_JWT_ISSUER", "GOMAIL_JWT_TTL",
	"GOMAIL_COOKIE_DOMAIN", "GOMAIL_FORCE_SECURE_COOKIE", "GOMAIL_TRUST_PROXY",
	"GOMAIL_MAX_LOGIN_ATTEMPTS", "GOMAIL_LOGIN_COOLDOWN",
	"GOMAIL_MAX_SIGNUPS_PER_IP", "GOMAIL_SIGNUP_WINDOW",
	"GOMAIL_REDIS_PREFIX", "GOMAIL_MAX_RECIPIENTS", "GOMAIL_AUDIT_ENABLED",
	"GOMAIL_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gomail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, goMail.EnvProduction, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)

	eng := cfg.Engine()
	assert.Equal(t, goMail.SessionTTL, eng.JWT.TTL)
	assert.Error(t, eng.Validate(), "production defaults without a secret must not validate")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOMAIL_ENV", "development")
	t.Setenv("GOMAIL_LISTEN", ":9000")
	t.Setenv("GOMAIL_REDIS_ADDR", "redis:6380")
	t.Setenv("GOMAIL_REDIS_DB", "3")
	t.Setenv("GOMAIL_TRUST_PROXY", "true")
	t.Setenv("GOMAIL_MAX_LOGIN_ATTEMPTS", "9")
	t.Setenv("GOMAIL_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, "debug", cfg.Logging.Level)

	eng := cfg.Engine()
	assert.Equal(t, 9, eng.Security.MaxLoginAttempts)
	require.NoError(t, eng.Validate())
}

func TestLoad_SessionLifetimeNotConfigurable(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOMAIL_ENV", "development")
	t.Setenv("GOMAIL_JWT_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	eng := cfg.Engine()
	assert.Equal(t, 24*time.Hour, eng.JWT.TTL)
	require.NoError(t, eng.Validate())

	fromFile, err := LoadFromFile(writeConfig(t, "environment: development\njwt:\n  ttl: 12h\n"))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, fromFile.Engine().JWT.TTL)
}

func TestLoad_MemoryRedis(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOMAIL_REDIS_ADDR", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_BadEnvValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"GOMAIL_REDIS_DB", "three"},
		{"GOMAIL_LOGIN_COOLDOWN", "forever"},
		{"GOMAIL_TRUST_PROXY", "maybe"},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err, "%s=%q", tc.key, tc.value)
		})
	}
}

func TestLoadFromFile_EnvWins(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
environment: production
server:
  listen: ":7000"
  admin_listen: ":7001"
redis:
  addr: "cache:6379"
jwt:
  secret: "0123456789abcdef0123456789abcdef"
security:
  login_cooldown: 5m
mail:
  max_recipients: 10
`)
	t.Setenv("GOMAIL_LISTEN", ":7100")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":7100", cfg.Server.Listen, "env should win")
	assert.Equal(t, ":7001", cfg.Server.AdminListen)
	assert.Equal(t, 5*time.Minute, cfg.Security.LoginCooldown)
	// Fields the file omits keep their defaults.
	assert.Equal(t, goMail.DefaultConfig().Security.MaxLoginAttempts, cfg.Security.MaxLoginAttempts)

	eng := cfg.Engine()
	assert.Equal(t, 10, eng.Mail.MaxRecipients)
	require.NoError(t, eng.Validate())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}
