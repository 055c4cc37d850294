package handler

import (
	"errors"
	"net/http"

	"go-token-auth/internal/config"
	"go-token-auth/internal/model"
	"go-token-auth/internal/service"
)

type TokenHandler struct {
	service    *service.AuthService
	verifyMode string
}

// NewTokenHandler serves the unauthenticated token endpoints. verifyMode is
// config.VerifyModeEnvelope or config.VerifyModeStatus.
func NewTokenHandler(service *service.AuthService, verifyMode string) *TokenHandler {
	if verifyMode != config.VerifyModeStatus {
		verifyMode = config.VerifyModeEnvelope
	}
	return &TokenHandler{service: service, verifyMode: verifyMode}
}

func (h *TokenHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	p := readParams(w, r)

	payload := p.issueToken()
	issued, err := h.service.IssueToken(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, issued)
}

// VerifyToken reports token validity. In envelope mode a rejected token is a
// 200 with success=false; a missing token parameter or an unavailable
// signing key is always a hard error.
func (h *TokenHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	p := readParams(w, r)

	claims, err := h.service.VerifyToken(r.Context(), p.verifyToken().Token)
	if err == nil {
		writeSuccess(w, http.StatusOK, claims)
		return
	}

	if h.verifyMode == config.VerifyModeStatus || !isTokenRejection(err) {
		writeError(w, err)
		return
	}

	_, body := classifyError(err)
	writeJSON(w, http.StatusOK, model.APIResponse{
		Success: false,
		Message: body.Message,
		Error:   body,
	})
}

func isTokenRejection(err error) bool {
	return errors.Is(err, model.ErrInvalidToken) ||
		errors.Is(err, model.ErrTokenSuperseded) ||
		errors.Is(err, model.ErrUserNotFound)
}
