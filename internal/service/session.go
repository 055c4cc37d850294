package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go-token-auth/internal/metrics"
	"go-token-auth/internal/model"
	"go-token-auth/internal/token"
)

const bearerPrefix = "Bearer "

type secretProvider interface {
	Get(ctx context.Context) ([]byte, error)
}

// SessionSlots stores the last token issued to each user.
type SessionSlots interface {
	Get(ctx context.Context, userID int64) (string, error)
	Put(ctx context.Context, userID int64, token string, ttl time.Duration) error
	Clear(ctx context.Context, userID int64) error
}

type userLookup interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
}

type SessionOptions struct {
	// SingleSession accepts only the most recently issued token per user.
	SingleSession bool
	// VerifyUserExists rejects tokens whose subject is gone from the directory.
	VerifyUserExists bool
}

type SessionAuthenticator struct {
	secrets secretProvider
	slots   SessionSlots
	users   userLookup
	opts    SessionOptions
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSessionAuthenticator(secrets secretProvider, slots SessionSlots, users userLookup, opts SessionOptions, m *metrics.Metrics) *SessionAuthenticator {
	return &SessionAuthenticator{
		secrets: secrets,
		slots:   slots,
		users:   users,
		opts:    opts,
		metrics: m,
		now:     time.Now,
	}
}

// AuthenticateRequest validates the Authorization header of a request to a
// protected route.
func (a *SessionAuthenticator) AuthenticateRequest(ctx context.Context, authorization string) (*token.Claims, error) {
	if authorization == "" {
		a.metrics.TokenValidated("gate", metrics.ResultMissing)
		return nil, errMissingToken()
	}

	raw, ok := strings.CutPrefix(authorization, bearerPrefix)
	if !ok || raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		a.metrics.TokenValidated("gate", metrics.ResultMalformedHeader)
		return nil, errMalformedHeader()
	}

	claims, err := a.validate(ctx, raw)
	a.metrics.TokenValidated("gate", resultOf(err))
	return claims, err
}

// ValidateToken runs the same checks as AuthenticateRequest on a bare token.
func (a *SessionAuthenticator) ValidateToken(ctx context.Context, raw string) (*token.Claims, error) {
	claims, err := a.validate(ctx, raw)
	a.metrics.TokenValidated("verify", resultOf(err))
	return claims, err
}

func (a *SessionAuthenticator) validate(ctx context.Context, raw string) (*token.Claims, error) {
	secret, err := a.secrets.Get(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := token.Decode(raw, secret, a.now())
	if err != nil {
		return nil, errInvalidToken(err)
	}

	if a.opts.SingleSession {
		last, err := a.slots.Get(ctx, claims.UserID)
		if errors.Is(err, model.ErrTokenNotFound) {
			return nil, errTokenSuperseded()
		}
		if err != nil {
			return nil, err
		}
		if subtle.ConstantTimeCompare([]byte(last), []byte(raw)) != 1 {
			return nil, errTokenSuperseded()
		}
	}

	if a.opts.VerifyUserExists {
		if _, err := a.users.FindByID(ctx, claims.UserID); err != nil {
			if errors.Is(err, model.ErrUserNotFound) {
				return nil, errUserNotFound()
			}
			return nil, err
		}
	}

	return claims, nil
}

// Remember records raw as the user's only valid token when single-session
// mode is on.
func (a *SessionAuthenticator) Remember(ctx context.Context, userID int64, raw string) error {
	if !a.opts.SingleSession {
		return nil
	}
	return a.slots.Put(ctx, userID, raw, token.TTL)
}

// Forget empties the user's slot so no earlier token passes the gate.
func (a *SessionAuthenticator) Forget(ctx context.Context, userID int64) error {
	if !a.opts.SingleSession {
		return nil
	}
	return a.slots.Clear(ctx, userID)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, model.ErrTokenExpired):
		return metrics.ResultExpired
	case errors.Is(err, model.ErrBadSignature):
		return metrics.ResultBadSignature
	case errors.Is(err, model.ErrMalformedToken):
		return metrics.ResultMalformed
	case errors.Is(err, model.ErrTokenSuperseded):
		return metrics.ResultSuperseded
	case errors.Is(err, model.ErrUserNotFound):
		return metrics.ResultUserNotFound
	default:
		return metrics.ResultError
	}
}
