package goMail

import (
	"log/slog"
	"time"
)

// SecurityReport summarizes the security-relevant configuration of an Engine.
// It never includes key material.
type SecurityReport struct {
	Environment        string
	SigningAlgorithm   string
	TokenTTL           time.Duration
	SecureCookies      bool
	DevelopmentSecret  bool
	Argon2             PasswordConfigReport
	RateLimitingActive bool
	IPThrottleActive   bool
	SignupLimitActive  bool
	AuditEnabled       bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	method := e.config.JWT.SigningMethod
	if method == "" {
		method = "hs256"
	}

	return SecurityReport{
		Environment:       e.config.Environment,
		SigningAlgorithm:  method,
		TokenTTL:          e.config.JWT.TTL,
		SecureCookies:     e.config.SecureCookies(),
		DevelopmentSecret: method == "hs256" && string(e.config.JWT.Secret) == DevelopmentSecret,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		RateLimitingActive: e.config.Security.MaxLoginAttempts > 0 && e.config.Security.LoginCooldownDuration > 0,
		IPThrottleActive:   e.config.Security.EnableIPThrottle,
		SignupLimitActive:  e.config.Security.MaxSignupsPerIP > 0,
		AuditEnabled:       e.config.Audit.Enabled,
	}
}

// LogValue renders the report as a slog group.
func (r SecurityReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("environment", r.Environment),
		slog.String("signing_algorithm", r.SigningAlgorithm),
		slog.Duration("token_ttl", r.TokenTTL),
		slog.Bool("secure_cookies", r.SecureCookies),
		slog.Bool("development_secret", r.DevelopmentSecret),
		slog.Group("argon2",
			slog.Any("memory_kb", r.Argon2.Memory),
			slog.Any("time", r.Argon2.Time),
			slog.Any("parallelism", r.Argon2.Parallelism),
			slog.Any("key_length", r.Argon2.KeyLength),
		),
		slog.Bool("rate_limiting", r.RateLimitingActive),
		slog.Bool("ip_throttle", r.IPThrottleActive),
		slog.Bool("signup_limit", r.SignupLimitActive),
		slog.Bool("audit", r.AuditEnabled),
	)
}
