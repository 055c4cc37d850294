package model

import "errors"

var (
	// Credential errors
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrIncorrectCurrentPassword = errors.New("current password is incorrect")
	ErrMissingFields            = errors.New("missing required fields")
	ErrPasswordTooShort         = errors.New("password too short")

	// Request authentication errors
	ErrMissingToken    = errors.New("missing token")
	ErrMalformedHeader = errors.New("malformed authorization header")
	ErrTokenSuperseded = errors.New("token superseded")

	// Token decoding errors. Every decode failure matches ErrInvalidToken
	// together with exactly one of the kinds below.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("bad signature")
	ErrMalformedToken = errors.New("malformed token")

	// Directory errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Storage errors
	ErrOptionNotFound    = errors.New("option not found")
	ErrTokenNotFound     = errors.New("token not found")
	ErrConfigUnavailable = errors.New("configuration store unavailable")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
