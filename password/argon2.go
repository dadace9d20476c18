package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"

	// MinLength is the shortest accepted password, in bytes.
	MinLength = 8
	// MaxLength bounds the work a single hash request can cause.
	MaxLength = 1024
)

var (
	// ErrTooShort is returned by [Hasher.Hash] for passwords under [MinLength] bytes.
	ErrTooShort = fmt.Errorf("password must be at least %d characters", MinLength)
	// ErrTooLong is returned by [Hasher.Hash] for passwords over [MaxLength] bytes.
	ErrTooLong = fmt.Errorf("password must be at most %d characters", MaxLength)
	// ErrInvalidHash is returned when a stored hash is not a supported PHC string.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher hashes and verifies passwords with Argon2id.
//
// A Hasher is immutable after [New] and safe for concurrent use.
type Hasher struct {
	config Config
	dummy  string
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// New validates cfg and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	h := &Hasher{config: cfg}
	dummy, err := h.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, err
	}
	h.dummy = dummy

	return h, nil
}

// Hash returns the PHC-encoded Argon2id hash of password. Passwords are
// hashed byte-for-byte without Unicode normalisation.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < MinLength {
		return "", ErrTooShort
	}
	if len(password) > MaxLength {
		return "", ErrTooLong
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if len(password) > MaxLength {
		return false, ErrTooLong
	}

	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.hash)))
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// VerifyDummy burns the same work as a real Verify against a fixed hash. Call
// it when the account does not exist so that response timing does not reveal
// which emails are registered.
func (h *Hasher) VerifyDummy(password string) {
	_, _ = h.Verify(password, h.dummy)
}

// NeedsRehash reports whether encodedHash was produced with weaker parameters
// than the Hasher's current configuration.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	return h.config.Memory > parsed.memory ||
		h.config.Time > parsed.time ||
		h.config.Parallelism > parsed.parallelism ||
		h.config.KeyLength != uint32(len(parsed.hash)), nil
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version", ErrInvalidHash)
	}

	var (
		out         phc
		parallelism uint32
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.memory, &out.time, &parallelism); err != nil {
		return nil, fmt.Errorf("%w: bad parameters", ErrInvalidHash)
	}
	if out.memory < minMemoryKB || out.time < minTimeCost || parallelism < uint32(minParallelism) || parallelism > 255 {
		return nil, fmt.Errorf("%w: parameters out of range", ErrInvalidHash)
	}
	out.parallelism = uint8(parallelism)

	salt, err := decodeSegment(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	hash, err := decodeSegment(parts[5])
	if err != nil || len(hash) < int(minKeyLength) {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}
	out.salt = salt
	out.hash = hash

	return &out, nil
}

// decodeSegment accepts both the unpadded PHC form and padded standard base64.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}
	return nil
}
