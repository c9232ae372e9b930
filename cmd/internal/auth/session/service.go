package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tabula/cmd/identity"
	"tabula/cmd/internal/fault"
	"tabula/cmd/security/password"
	"tabula/cmd/security/token"
)

// IdentityStore is the credential store the login flow depends on.
type IdentityStore interface {
	Get(ctx context.Context) (identity.Identity, error)
	Create(ctx context.Context, plain string, now time.Time) (identity.Identity, error)
	CheckPassword(id identity.Identity, plain string) (bool, error)
}

// AccessTokenManager issues and verifies access tokens.
type AccessTokenManager interface {
	Issue(now time.Time) (string, token.Claims, error)
	Verify(raw string, now time.Time) (token.Claims, error)
}

// Issued is the result of a successful login.
type Issued struct {
	Token        string
	ExpiresIn    int64
	ExpiresAt    time.Time
	Bootstrapped bool
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	Username  string
	ExpiresAt time.Time
}

// Service runs login and authentication.
type Service struct {
	identities IdentityStore
	tokens     AccessTokenManager
	policy     password.Config
	log        *slog.Logger
}

// NewService constructs a Service. policy supplies the password length rules.
func NewService(identities IdentityStore, tokens AccessTokenManager, policy password.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{identities: identities, tokens: tokens, policy: policy, log: log}
}

// Login authenticates username/plain and returns a fresh token.
//
// When no identity exists yet, the first well-formed login creates it from
// plain. The username is required but not compared: there is exactly one
// identity.
func (s *Service) Login(ctx context.Context, username, plain string, now time.Time) (Issued, error) {
	const op = "session.Login"

	if username == "" || plain == "" {
		return Issued{}, fault.Validation(op, MsgCredentialsRequired)
	}
	switch err := s.policy.Validate(plain); {
	case errors.Is(err, password.ErrPasswordTooShort):
		return Issued{}, fault.Validation(op, MsgPasswordTooShort)
	case errors.Is(err, password.ErrPasswordTooLong):
		return Issued{}, fault.Validation(op, MsgPasswordTooLong)
	case err != nil:
		return Issued{}, fault.Validation(op, MsgCredentialsRequired)
	}

	bootstrapped := false
	id, err := s.identities.Get(ctx)
	switch {
	case identity.IsNotFound(err):
		id, err = s.identities.Create(ctx, plain, now)
		switch {
		case err == nil:
			bootstrapped = true
			s.log.Info("auth.login.bootstrap", "role", id.Role)
		case identity.IsConflict(err):
			// Lost a first-login race; verify against the winner.
			s.log.Info("auth.login.bootstrap.conflict")
			if id, err = s.identities.Get(ctx); err != nil {
				return Issued{}, fault.Store(op, MsgLoginFailed, err)
			}
		default:
			return Issued{}, fault.Store(op, MsgCreateFailed, err)
		}
	case err != nil:
		return Issued{}, fault.Store(op, MsgLoginFailed, err)
	}

	if !bootstrapped {
		ok, err := s.identities.CheckPassword(id, plain)
		if err != nil {
			s.log.Error("auth.login.verify.fail", "err", err)
			return Issued{}, fault.Store(op, MsgLoginFailed, err)
		}
		if !ok {
			return Issued{}, fault.Auth(op, MsgBadCredentials)
		}
	}

	raw, claims, err := s.tokens.Issue(now)
	if err != nil {
		if errors.Is(err, token.ErrSecretMissing) {
			return Issued{}, fault.Configuration(op, MsgServerMisconfigured, err)
		}
		return Issued{}, fault.Store(op, MsgLoginFailed, err)
	}

	return Issued{
		Token:        raw,
		ExpiresIn:    int64(token.TTL / time.Second),
		ExpiresAt:    claims.ExpiresAt.Time,
		Bootstrapped: bootstrapped,
	}, nil
}

// Authenticate verifies raw (structure, signature, expiry) and returns the caller.
// Every token failure maps to the same AuthError message.
func (s *Service) Authenticate(raw string, now time.Time) (Principal, error) {
	const op = "session.Authenticate"

	if raw == "" {
		return Principal{}, fault.Auth(op, MsgUnauthorized)
	}

	claims, err := s.tokens.Verify(raw, now)
	if err != nil {
		if errors.Is(err, token.ErrSecretMissing) {
			return Principal{}, fault.Configuration(op, MsgServerMisconfigured, err)
		}
		s.log.Debug("auth.token.reject", "reason", err.Error())
		return Principal{}, fault.Auth(op, MsgTokenInvalid)
	}

	p := Principal{Username: claims.Username}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
