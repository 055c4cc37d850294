package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go-token-auth/internal/model"
	"go-token-auth/internal/token"
	"go-token-auth/pkg/apierror"
)

type requestAuthenticator interface {
	AuthenticateRequest(ctx context.Context, authorization string) (*token.Claims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

// AuthMiddleware is the gate in front of protected routes. A request that
// fails authentication never reaches the wrapped handler.
type AuthMiddleware struct {
	authenticator requestAuthenticator
}

func NewAuthMiddleware(authenticator requestAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authenticator.AuthenticateRequest(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*token.Claims)
	return claims, ok && claims != nil
}

// WithClaims stores claims the way RequireAuth does.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, authClaimsContextKey, claims)
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else {
		slog.Error("authentication failed unexpectedly", "error", err.Error())
	}

	writeFailure(w, status, body)
}
