package goMail

import (
	"errors"
	"fmt"
	"time"
)

const (
	// EnvDevelopment relaxes cookie and secret requirements for local work.
	EnvDevelopment = "development"
	// EnvProduction is the default environment.
	EnvProduction = "production"

	// DevelopmentSecret is substituted for an empty signing secret in
	// development only. Any other environment refuses to start with it.
	DevelopmentSecret = "gomail-development-secret-not-for-production"

	// MinProductionSecretLength is the shortest HS256 secret accepted outside development.
	MinProductionSecretLength = 32

	// SessionTTL is the lifetime of a session token and of its cookie.
	SessionTTL = 24 * time.Hour
)

// Config is the Engine configuration.
//
// Config is copied by [Builder.WithConfig]; later changes to the caller's value have no effect.
type Config struct {
	Environment string
	JWT         JWTConfig
	Session     SessionConfig
	Password    PasswordConfig
	Security    SecurityConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	Mail        MailConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls session token signing.
type JWTConfig struct {
	TTL           time.Duration // must equal SessionTTL
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session cookie.
type SessionConfig struct {
	CookieDomain string
	// ForceSecureCookie sets Secure on the cookie even in development.
	ForceSecureCookie bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds login and signup throttling.
type SecurityConfig struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	MaxSignupsPerIP       int
	SignupWindow          time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
MAIL CONFIG
====================================
*/

// MailConfig bounds what a single message may contain.
type MailConfig struct {
	RedisPrefix     string
	MaxRecipients   int
	MaxSubjectBytes int
	MaxBodyBytes    int
	MaxAttachments  int
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a production configuration without a signing secret.
// Callers must set JWT.Secret (or switch Environment to development).
func DefaultConfig() Config {
	return Config{
		Environment: EnvProduction,
		JWT: JWTConfig{
			TTL:           SessionTTL,
			SigningMethod: "hs256",
			Issuer:        "gomail",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			MaxSignupsPerIP:       10,
			SignupWindow:          time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Mail: MailConfig{
			RedisPrefix:     "gm",
			MaxRecipients:   100,
			MaxSubjectBytes: 998,
			MaxBodyBytes:    256 << 10,
			MaxAttachments:  20,
		},
	}
}

// IsDevelopment reports whether the configuration targets local development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// SecureCookies reports whether the session cookie carries the Secure attribute.
func (c *Config) SecureCookies() bool {
	return !c.IsDevelopment() || c.Session.ForceSecureCookie
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem. Outside development a
// missing, default, or short signing secret is an error.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return errors.New("Environment is required")
	}

	// JWT
	if c.JWT.TTL != SessionTTL {
		return fmt.Errorf("JWT TTL must be %s", SessionTTL)
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	switch c.JWT.SigningMethod {
	case "hs256", "":
		if err := c.validateSecret(); err != nil {
			return err
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("LoginCooldownDuration must be > 0")
	}
	if c.Security.MaxSignupsPerIP < 0 {
		return errors.New("MaxSignupsPerIP must be >= 0")
	}
	if c.Security.MaxSignupsPerIP > 0 && c.Security.SignupWindow <= 0 {
		return errors.New("SignupWindow must be > 0 when MaxSignupsPerIP is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Mail
	if c.Mail.MaxRecipients <= 0 {
		return errors.New("Mail MaxRecipients must be > 0")
	}
	if c.Mail.MaxSubjectBytes <= 0 || c.Mail.MaxBodyBytes <= 0 {
		return errors.New("Mail subject and body limits must be > 0")
	}
	if c.Mail.MaxAttachments < 0 {
		return errors.New("Mail MaxAttachments must be >= 0")
	}

	if !c.IsDevelopment() {
		if c.Password.Memory < 19456 {
			return errors.New("production requires Password Memory >= 19456 KB")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("production requires Password KeyLength >= 32")
		}
	}

	return nil
}

func (c *Config) validateSecret() error {
	if c.IsDevelopment() {
		// Empty is allowed here; Build substitutes DevelopmentSecret.
		return nil
	}
	switch {
	case len(c.JWT.Secret) == 0:
		return errors.New("JWT Secret is required outside development")
	case string(c.JWT.Secret) == DevelopmentSecret:
		return errors.New("JWT Secret must not be the development secret outside development")
	case len(c.JWT.Secret) < MinProductionSecretLength:
		return fmt.Errorf("JWT Secret must be at least %d bytes outside development", MinProductionSecretLength)
	}
	return nil
}
