package goMail

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/goMail/internal/rate"
	"github.com/MrEthical07/goMail/jwt"
	"github.com/MrEthical07/goMail/mailstore"
	"github.com/MrEthical07/goMail/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the mail store and the rate limiters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. Without a sink, events are discarded.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
//
// In development an empty HS256 secret is replaced by [DevelopmentSecret]
// and a warning is logged. Outside development Validate has already
// rejected it.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	method := jwt.SigningMethod(cfg.JWT.SigningMethod)
	if method == "" {
		method = jwt.MethodHS256
	}
	if method == jwt.MethodHS256 && len(cfg.JWT.Secret) == 0 && cfg.IsDevelopment() {
		logger.Warn("no JWT secret configured, using the built-in development secret")
		cfg.JWT.Secret = []byte(DevelopmentSecret)
	}

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: method,
		Secret:        cloneBytes(cfg.JWT.Secret),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	ph, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		logger:       logger,
		store:        mailstore.New(b.redis, cfg.Mail.RedisPrefix),
		passwordHash: ph,
		jwtManager:   jm,
		metrics:      NewMetrics(cfg.Metrics),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
	}
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		MaxSignupsPerIP:       cfg.Security.MaxSignupsPerIP,
		SignupWindow:          cfg.Security.SignupWindow,
	})

	b.built = true

	return engine, nil
}
