package handler

import (
	"net/http"

	"go-token-auth/internal/middleware"
	"go-token-auth/internal/model"
	"go-token-auth/internal/service"
	"go-token-auth/pkg/apierror"
)

// UserHandler serves the routes behind the authentication gate.
type UserHandler struct {
	service *service.AuthService
}

func NewUserHandler(service *service.AuthService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) GetUserData(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, authenticationRequired())
		return
	}

	profile, err := h.service.Profile(r.Context(), claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, authenticationRequired())
		return
	}

	p := readParams(w, r)

	payload := p.changePassword()
	if err := h.service.ChangePassword(r.Context(), claims, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password updated successfully.")
}

func authenticationRequired() error {
	return apierror.Wrap(model.ErrMissingToken, "MISSING_TOKEN", "Authentication required.", "", http.StatusUnauthorized)
}
