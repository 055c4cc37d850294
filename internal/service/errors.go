package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go-token-auth/internal/model"
	"go-token-auth/pkg/apierror"
)

func errInvalidCredentials() error {
	return apierror.Wrap(model.ErrInvalidCredentials, "INVALID_CREDENTIALS", "Invalid username or password.", "", http.StatusUnauthorized)
}

func errMissingToken() error {
	return apierror.Wrap(model.ErrMissingToken, "MISSING_TOKEN", "Authorization header is missing.", "", http.StatusUnauthorized)
}

func errMissingTokenParam() error {
	return apierror.Wrap(model.ErrMissingToken, "MISSING_TOKEN", "Token is required.", "", http.StatusUnauthorized)
}

func errMalformedHeader() error {
	return apierror.Wrap(model.ErrMalformedHeader, "MALFORMED_HEADER", "Invalid token format.", "", http.StatusUnauthorized)
}

func errTokenSuperseded() error {
	return apierror.Wrap(model.ErrTokenSuperseded, "TOKEN_SUPERSEDED", "Token has been superseded by a newer login.", "", http.StatusUnauthorized)
}

func errUserNotFound() error {
	return apierror.Wrap(model.ErrUserNotFound, "USER_NOT_FOUND", "User not found.", "", http.StatusNotFound)
}

// errUserGone is the refusal for an authenticated request whose user was
// deleted after the gate let it through.
func errUserGone() error {
	return apierror.Wrap(model.ErrUserNotFound, "USER_NOT_FOUND", "User no longer exists.", "", http.StatusUnauthorized)
}

func errMissingFields(message string) error {
	return apierror.Wrap(model.ErrMissingFields, "MISSING_FIELDS", message, "", http.StatusBadRequest)
}

func errPasswordTooShort(minLength int) error {
	return apierror.Wrap(model.ErrPasswordTooShort, "PASSWORD_TOO_SHORT",
		fmt.Sprintf("New password must be at least %d characters long.", minLength), "", http.StatusBadRequest)
}

func errIncorrectCurrentPassword() error {
	return apierror.Wrap(model.ErrIncorrectCurrentPassword, "INCORRECT_CURRENT_PASSWORD", "Current password is incorrect.", "", http.StatusForbidden)
}

// errConfigUnavailable keeps cause out of the response body but logs it.
func errConfigUnavailable(cause error) error {
	slog.Error("signing secret unavailable", "error", cause)
	return apierror.Wrap(fmt.Errorf("%w: %w", model.ErrConfigUnavailable, cause),
		"CONFIG_UNAVAILABLE", "Authentication is temporarily unavailable.", "", http.StatusServiceUnavailable)
}

// errInvalidToken keeps the decode failure kind in Details so clients can
// tell an expired token from a forged one.
func errInvalidToken(err error) error {
	kind := "malformed"
	message := "Invalid token: malformed."
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		kind = "expired"
		message = "Token has expired."
	case errors.Is(err, model.ErrBadSignature):
		kind = "bad_signature"
		message = "Invalid token: signature verification failed."
	}
	return apierror.Wrap(err, "INVALID_TOKEN", message, kind, http.StatusUnauthorized)
}
