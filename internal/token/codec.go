package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-token-auth/internal/model"
)

const (
	// TTL is fixed; tokens are never refreshed.
	TTL = 24 * time.Hour

	Algorithm = "HS256"
)

// ExpiresIn is TTL in seconds, as reported to clients.
var ExpiresIn = int64(TTL / time.Second)

// Encode signs claims with HS256. iat is set to now (second precision) and
// exp to iat + TTL, so identical inputs always produce the same token.
func Encode(claims Claims, secret []byte, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token: signing secret is empty")
	}
	if claims.UserID <= 0 {
		return "", fmt.Errorf("token: invalid user id %d", claims.UserID)
	}

	issuedAt := now.UTC().Truncate(time.Second)
	claims.Subject = strconv.FormatInt(claims.UserID, 10)
	claims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(TTL))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}

	return signed, nil
}

// Decode verifies tokenString against secret at instant now. Every failure
// matches model.ErrInvalidToken and one of model.ErrTokenExpired,
// model.ErrBadSignature or model.ErrMalformedToken. A token is expired once
// now reaches its exp.
func Decode(tokenString string, secret []byte, now time.Time) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" || strings.Count(tokenString, ".") != 2 {
		return nil, invalid(model.ErrMalformedToken, nil)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.UserID <= 0 {
		return nil, invalid(model.ErrMalformedToken, errors.New("user_id claim missing"))
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return invalid(model.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return invalid(model.ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return invalid(model.ErrTokenExpired, err)
	default:
		return invalid(model.ErrMalformedToken, err)
	}
}

func invalid(kind error, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidToken, kind)
	}
	return fmt.Errorf("%w: %w: %v", model.ErrInvalidToken, kind, cause)
}
