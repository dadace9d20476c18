// Package config loads the server configuration: defaults, then an optional
// YAML file, then GOMAIL_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	goMail "github.com/MrEthical07/goMail"
)

// Config holds everything the gomail binary needs.
type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Redis       RedisConfig    `yaml:"redis"`
	Logging     LoggingConfig  `yaml:"logging"`
	JWT         JWTConfig      `yaml:"jwt"`
	Session     SessionConfig  `yaml:"session"`
	Security    SecurityConfig `yaml:"security"`
	Mail        MailConfig     `yaml:"mail"`
	Audit       AuditConfig    `yaml:"audit"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	// AdminListen serves /metrics and /metrics/otel. Empty disables it.
	AdminListen string `yaml:"admin_listen"`
	StaticDir   string `yaml:"static_dir"`
	TrustProxy  bool   `yaml:"trust_proxy"`
}

// RedisConfig selects the backing store. An empty Addr starts an in-process
// miniredis, which the server accepts only in development.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type SessionConfig struct {
	CookieDomain      string `yaml:"cookie_domain"`
	ForceSecureCookie bool   `yaml:"force_secure_cookie"`
}

type SecurityConfig struct {
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	LoginCooldown    time.Duration `yaml:"login_cooldown"`
	MaxSignupsPerIP  int           `yaml:"max_signups_per_ip"`
	SignupWindow     time.Duration `yaml:"signup_window"`
}

type MailConfig struct {
	RedisPrefix    string `yaml:"redis_prefix"`
	MaxRecipients  int    `yaml:"max_recipients"`
	MaxBodyBytes   int    `yaml:"max_body_bytes"`
	MaxAttachments int    `yaml:"max_attachments"`
}

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
}

// Load reads the environment only.
func Load() (*Config, error) {
	cfg := defaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads path as the base layer. A missing file is an error.
func LoadFromFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	eng := goMail.DefaultConfig()
	return &Config{
		Environment: goMail.EnvProduction,
		Server: ServerConfig{
			Listen:    ":8080",
			StaticDir: "web/static",
		},
		Logging: LoggingConfig{Level: "info"},
		JWT: JWTConfig{
			Issuer: eng.JWT.Issuer,
		},
		Security: SecurityConfig{
			MaxLoginAttempts: eng.Security.MaxLoginAttempts,
			LoginCooldown:    eng.Security.LoginCooldownDuration,
			MaxSignupsPerIP:  eng.Security.MaxSignupsPerIP,
			SignupWindow:     eng.Security.SignupWindow,
		},
		Mail: MailConfig{
			RedisPrefix:    eng.Mail.RedisPrefix,
			MaxRecipients:  eng.Mail.MaxRecipients,
			MaxBodyBytes:   eng.Mail.MaxBodyBytes,
			MaxAttachments: eng.Mail.MaxAttachments,
		},
		Audit: AuditConfig{
			Enabled:    eng.Audit.Enabled,
			BufferSize: eng.Audit.BufferSize,
		},
	}
}

// Engine translates the file and environment settings into a goMail.Config.
// Settings this package does not expose keep their goMail defaults.
func (c *Config) Engine() goMail.Config {
	out := goMail.DefaultConfig()
	out.Environment = c.Environment

	if c.JWT.Secret != "" {
		out.JWT.Secret = []byte(c.JWT.Secret)
	}
	out.JWT.Issuer = c.JWT.Issuer

	out.Session.CookieDomain = c.Session.CookieDomain
	out.Session.ForceSecureCookie = c.Session.ForceSecureCookie

	out.Security.MaxLoginAttempts = c.Security.MaxLoginAttempts
	out.Security.LoginCooldownDuration = c.Security.LoginCooldown
	out.Security.MaxSignupsPerIP = c.Security.MaxSignupsPerIP
	out.Security.SignupWindow = c.Security.SignupWindow

	out.Mail.RedisPrefix = c.Mail.RedisPrefix
	out.Mail.MaxRecipients = c.Mail.MaxRecipients
	out.Mail.MaxBodyBytes = c.Mail.MaxBodyBytes
	out.Mail.MaxAttachments = c.Mail.MaxAttachments

	out.Audit.Enabled = c.Audit.Enabled
	out.Audit.BufferSize = c.Audit.BufferSize

	return out
}

// IsDevelopment mirrors goMail.Config.IsDevelopment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == goMail.EnvDevelopment
}

// applyEnvVars overrides fields from non-empty GOMAIL_* variables.
func (c *Config) applyEnvVars() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	str("GOMAIL_ENV", &c.Environment)
	str("GOMAIL_LISTEN", &c.Server.Listen)
	str("GOMAIL_ADMIN_LISTEN", &c.Server.AdminListen)
	str("GOMAIL_STATIC_DIR", &c.Server.StaticDir)
	str("GOMAIL_REDIS_ADDR", &c.Redis.Addr)
	str("GOMAIL_REDIS_PASSWORD", &c.Redis.Password)
	str("GOMAIL_JWT_SECRET", &c.JWT.Secret)
	str("GOMAIL_JWT_ISSUER", &c.JWT.Issuer)
	str("GOMAIL_COOKIE_DOMAIN", &c.Session.CookieDomain)
	str("GOMAIL_REDIS_PREFIX", &c.Mail.RedisPrefix)

	if v := os.Getenv("GOMAIL_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	// GOMAIL_REDIS_ADDR=memory forces the in-process store.
	if strings.EqualFold(c.Redis.Addr, "memory") {
		c.Redis.Addr = ""
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"GOMAIL_REDIS_DB", &c.Redis.DB},
		{"GOMAIL_MAX_LOGIN_ATTEMPTS", &c.Security.MaxLoginAttempts},
		{"GOMAIL_MAX_SIGNUPS_PER_IP", &c.Security.MaxSignupsPerIP},
		{"GOMAIL_MAX_RECIPIENTS", &c.Mail.MaxRecipients},
	}
	for _, it := range ints {
		v := os.Getenv(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", it.key, err)
		}
		*it.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"GOMAIL_LOGIN_COOLDOWN", &c.Security.LoginCooldown},
		{"GOMAIL_SIGNUP_WINDOW", &c.Security.SignupWindow},
	}
	for _, it := range durations {
		v := os.Getenv(it.key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", it.key, err)
		}
		*it.dst = d
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"GOMAIL_TRUST_PROXY", &c.Server.TrustProxy},
		{"GOMAIL_FORCE_SECURE_COOKIE", &c.Session.ForceSecureCookie},
		{"GOMAIL_AUDIT_ENABLED", &c.Audit.Enabled},
	}
	for _, it := range bools {
		v := os.Getenv(it.key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", it.key, err)
		}
		*it.dst = b
	}

	return nil
}
