package middleware

import (
	"encoding/json"
	"net/http"

	"go-token-auth/internal/model"
)

// writeFailure renders the same error envelope the handlers use.
func writeFailure(w http.ResponseWriter, status int, body *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Message: body.Message,
		Error:   body,
	})
}
