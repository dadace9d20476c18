package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the algorithm used for session tokens.
type SigningMethod string

const (
	// MethodHS256 signs with a shared server secret. This is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with its public key.
	MethodEd25519 SigningMethod = "ed25519"
)

// MinSecretLength is the minimum HS256 secret length accepted by [NewManager].
const MinSecretLength = 16

var (
	// ErrTokenExpired is returned by [Manager.Verify] when the exp claim is in the past.
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenInvalid is returned by [Manager.Verify] for any other verification failure.
	ErrTokenInvalid = errors.New("session token invalid")
)

// Config describes how session tokens are signed and verified.
//
// Config is read once by [NewManager]; later changes to the caller's copy have no effect.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
}

// Manager issues and verifies session tokens.
//
// A Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// SessionClaims is the claim set carried by a session token. The subject id is
// written both to the registered "sub" claim and to the "id" claim read by
// older clients.
type SessionClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
//
// A missing or short signing key is reported here so that it surfaces as a
// startup failure rather than as a per-request error.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires a signing secret")
		}
		if len(cfg.Secret) < MinSecretLength {
			return nil, fmt.Errorf("hs256 secret must be at least %d bytes", MinSecretLength)
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// TTL returns the validity window of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue mints a token for userID that expires after the configured TTL.
func (m *Manager) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("empty subject")
	}

	now := m.now()
	expiresAt := now.Add(m.config.TTL)
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signKey, err := m.signKey()
	if err != nil {
		return "", time.Time{}, err
	}

	signed, err := jwt.NewWithClaims(m.method(), claims).SignedString(signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, algorithm, issuer and expiry of tokenStr and
// returns its claims. Expired tokens yield [ErrTokenExpired]; every other
// failure yields [ErrTokenInvalid].
func (m *Manager) Verify(tokenStr string) (*SessionClaims, error) {
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.Subject != "" && claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%w: subject mismatch", ErrTokenInvalid)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrTokenInvalid)
	}

	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodEd25519 {
		if len(m.config.PrivateKey) == 0 {
			return nil, errors.New("ed25519 private key not configured")
		}
		return parseEdPrivateKey(m.config.PrivateKey)
	}
	return m.config.Secret, nil
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(m.config.PublicKey)
	}
	return m.config.Secret, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
