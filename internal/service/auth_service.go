package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"go-token-auth/internal/metrics"
	"go-token-auth/internal/model"
	"go-token-auth/internal/token"
)

type AuthOptions struct {
	Profile           token.Profile
	MinPasswordLength int
}

// AuthService implements the four token endpoints on top of the secret
// store, the credential verifier and the session authenticator.
type AuthService struct {
	secrets     secretProvider
	credentials *CredentialVerifier
	sessions    *SessionAuthenticator
	users       userLookup
	opts        AuthOptions
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewAuthService(
	secrets secretProvider,
	credentials *CredentialVerifier,
	sessions *SessionAuthenticator,
	users userLookup,
	opts AuthOptions,
	m *metrics.Metrics,
) *AuthService {
	if opts.Profile == "" {
		opts.Profile = token.ProfileMinimal
	}
	return &AuthService{
		secrets:     secrets,
		credentials: credentials,
		sessions:    sessions,
		users:       users,
		opts:        opts,
		metrics:     m,
		now:         time.Now,
	}
}

func (s *AuthService) IssueToken(ctx context.Context, username string, password string) (model.TokenResponse, error) {
	userID, err := s.credentials.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			s.metrics.TokenIssued(metrics.ResultInvalidCredentials)
		} else {
			s.metrics.TokenIssued(metrics.ResultError)
		}
		return model.TokenResponse{}, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.metrics.TokenIssued(metrics.ResultError)
		return model.TokenResponse{}, err
	}

	secret, err := s.secrets.Get(ctx)
	if err != nil {
		s.metrics.TokenIssued(metrics.ResultError)
		return model.TokenResponse{}, err
	}

	signed, err := token.Encode(token.ClaimsFor(user, s.opts.Profile), secret, s.now())
	if err != nil {
		s.metrics.TokenIssued(metrics.ResultError)
		return model.TokenResponse{}, err
	}

	if err := s.sessions.Remember(ctx, user.ID, signed); err != nil {
		s.metrics.TokenIssued(metrics.ResultError)
		return model.TokenResponse{}, err
	}

	s.metrics.TokenIssued(metrics.ResultSuccess)
	slog.Debug("token issued", "user_id", user.ID)

	return model.TokenResponse{Token: signed, ExpiresIn: token.ExpiresIn}, nil
}

// Profile loads the directory record of the authenticated subject.
func (s *AuthService) Profile(ctx context.Context, claims *token.Claims) (model.UserProfile, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.UserProfile{}, errUserNotFound()
	}
	if err != nil {
		return model.UserProfile{}, err
	}
	return ProfileFor(user), nil
}

// ChangePassword replaces the subject's password after checking the current
// one. A rejected change leaves the stored hash untouched.
func (s *AuthService) ChangePassword(ctx context.Context, claims *token.Claims, currentPassword string, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		s.metrics.PasswordChanged(metrics.ResultRejected)
		return errMissingFields("Current and new passwords are required.")
	}

	ok, err := s.credentials.CheckPassword(ctx, claims.UserID, currentPassword)
	if err != nil {
		s.metrics.PasswordChanged(metrics.ResultError)
		return err
	}
	if !ok {
		s.metrics.PasswordChanged(metrics.ResultRejected)
		return errIncorrectCurrentPassword()
	}

	if utf8.RuneCountInString(newPassword) < s.opts.MinPasswordLength {
		s.metrics.PasswordChanged(metrics.ResultRejected)
		return errPasswordTooShort(s.opts.MinPasswordLength)
	}

	if err := s.credentials.SetPassword(ctx, claims.UserID, newPassword); err != nil {
		s.metrics.PasswordChanged(metrics.ResultError)
		return err
	}

	if err := s.sessions.Forget(ctx, claims.UserID); err != nil {
		// The new hash is already committed.
		slog.Error("clear last issued token", "user_id", claims.UserID, "error", err)
	}

	s.metrics.PasswordChanged(metrics.ResultSuccess)
	slog.Info("password changed", "user_id", claims.UserID)
	return nil
}

// VerifyToken validates a token passed as a request parameter.
func (s *AuthService) VerifyToken(ctx context.Context, raw string) (*token.Claims, error) {
	if raw == "" {
		return nil, errMissingTokenParam()
	}
	return s.sessions.ValidateToken(ctx, raw)
}
