package goMail

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/MrEthical07/goMail/internal/rate"
	"github.com/MrEthical07/goMail/mailstore"
	"github.com/MrEthical07/goMail/password"
)

// Signup creates an account and returns its public view.
//
// Names are trimmed and stored as "first last". The email is trimmed and
// lowercased. A registered email yields ErrAccountExists and leaves the
// existing record untouched. Signup does not log the user in.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (User, error) {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return User{}, ErrEngineNotReady
	}

	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	email := mailstore.NormalizeEmail(in.Email)

	if err := validateSignup(first, last, email, in.Password); err != nil {
		e.emitAudit(ctx, auditEventSignupFailure, false, "", err, func() map[string]string {
			return map[string]string{"email": email, "reason": "validation"}
		})
		return User{}, err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.EnforceSignup(ctx, ClientIPFromContext(ctx)); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricSignupRateLimited)
				e.emitAudit(ctx, auditEventSignupRateLimited, false, "", ErrRateLimited, func() map[string]string {
					return map[string]string{"email": email}
				})
				return User{}, ErrRateLimited
			}
			return User{}, storeErr(err)
		}
	}

	hash, err := e.passwordHash.Hash(in.Password)
	if err != nil {
		return User{}, mapPasswordError(err)
	}

	rec := &mailstore.UserRecord{
		Name:         first + " " + last,
		Email:        email,
		PasswordHash: hash,
	}
	if err := e.store.CreateUser(ctx, rec); err != nil {
		if errors.Is(err, mailstore.ErrEmailTaken) {
			e.metricInc(MetricSignupDuplicate)
			e.emitAudit(ctx, auditEventSignupDuplicate, false, "", ErrAccountExists, func() map[string]string {
				return map[string]string{"email": email}
			})
			return User{}, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventSignupFailure, false, "", ErrStoreUnavailable, func() map[string]string {
			return map[string]string{"email": email, "reason": "store"}
		})
		return User{}, storeErr(err)
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, rec.ID, nil, nil)

	return userFromRecord(rec), nil
}

// Login checks credentials and issues a session token.
//
// An unknown email and a wrong password both return ErrInvalidCredentials,
// and both cost one Argon2 verification. Failed attempts count against the
// email and client IP budgets; a success clears them.
func (e *Engine) Login(ctx context.Context, email, pw string) (LoginResult, error) {
	if e == nil || e.store == nil || e.passwordHash == nil || e.jwtManager == nil {
		return LoginResult{}, ErrEngineNotReady
	}

	email = mailstore.NormalizeEmail(email)
	ip := ClientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.loginRateLimited(ctx, email)
				return LoginResult{}, ErrRateLimited
			}
			return LoginResult{}, storeErr(err)
		}
	}

	if email == "" || pw == "" || len(pw) > password.MaxLength {
		return LoginResult{}, e.loginFailed(ctx, email, ip, "", "malformed")
	}

	rec, err := e.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mailstore.ErrUserNotFound) {
			e.passwordHash.VerifyDummy(pw)
			return LoginResult{}, e.loginFailed(ctx, email, ip, "", "unknown_email")
		}
		return LoginResult{}, storeErr(err)
	}

	ok, err := e.passwordHash.Verify(pw, rec.PasswordHash)
	if err != nil {
		e.logger.Error("stored password hash unreadable", "user_id", rec.ID, "err", err)
		return LoginResult{}, e.loginFailed(ctx, email, ip, rec.ID, "bad_hash")
	}
	if !ok {
		return LoginResult{}, e.loginFailed(ctx, email, ip, rec.ID, "wrong_password")
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
			e.logger.Warn("login limiter reset failed", "err", err)
		}
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeRehash(ctx, rec, pw)
	}

	token, exp, err := e.jwtManager.Issue(rec.ID)
	if err != nil {
		return LoginResult{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, rec.ID, nil, nil)

	return LoginResult{
		Token:     token,
		ExpiresAt: exp,
		User:      userFromRecord(rec),
	}, nil
}

// Profile returns the account behind userID.
func (e *Engine) Profile(ctx context.Context, userID string) (User, error) {
	if e == nil || e.store == nil {
		return User{}, ErrEngineNotReady
	}

	rec, err := e.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mailstore.ErrUserNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, storeErr(err)
	}

	return userFromRecord(rec), nil
}

func (e *Engine) loginFailed(ctx context.Context, email, ip, userID, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"email": email, "reason": reason}
	})

	if e.rateLimiter != nil && email != "" {
		if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.loginRateLimited(ctx, email)
				return ErrRateLimited
			}
			e.logger.Warn("login limiter increment failed", "err", err)
		}
	}

	return ErrInvalidCredentials
}

func (e *Engine) loginRateLimited(ctx context.Context, email string) {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrRateLimited, func() map[string]string {
		return map[string]string{"email": email}
	})
}

// maybeRehash upgrades a hash produced with weaker Argon2 parameters. Failures
// are logged and never fail the login.
func (e *Engine) maybeRehash(ctx context.Context, rec *mailstore.UserRecord, pw string) {
	needs, err := e.passwordHash.NeedsRehash(rec.PasswordHash)
	if err != nil || !needs {
		return
	}

	hash, err := e.passwordHash.Hash(pw)
	if err != nil {
		e.logger.Warn("password rehash failed", "user_id", rec.ID, "err", err)
		return
	}
	if err := e.store.UpdatePasswordHash(ctx, rec.ID, hash); err != nil {
		e.logger.Warn("password rehash not stored", "user_id", rec.ID, "err", err)
		return
	}

	e.metricInc(MetricPasswordRehashed)
	e.emitAudit(ctx, auditEventPasswordRehashed, true, rec.ID, nil, nil)
}

func validateSignup(first, last, email, pw string) error {
	if first == "" {
		return invalid("firstName", "First name is required")
	}
	if last == "" {
		return invalid("lastName", "Last name is required")
	}
	if email == "" {
		return invalid("email", "Email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return invalid("email", "Email address is invalid")
	}
	if len(pw) < password.MinLength {
		return invalid("password", password.ErrTooShort.Error())
	}
	if len(pw) > password.MaxLength {
		return invalid("password", password.ErrTooLong.Error())
	}
	return nil
}

func mapPasswordError(err error) error {
	switch {
	case errors.Is(err, password.ErrTooShort), errors.Is(err, password.ErrTooLong):
		return invalid("password", err.Error())
	default:
		return err
	}
}

func userFromRecord(rec *mailstore.UserRecord) User {
	return User{
		ID:        rec.ID,
		Name:      rec.Name,
		Email:     rec.Email,
		CreatedAt: rec.CreatedAt,
	}
}
