package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"go-token-auth/internal/model"
)

const maxBodyBytes = 1 << 20

// params holds request parameters from the JSON body, a form body and the
// query string. Lookups take the first non-empty value in that order.
type params struct {
	json  map[string]any
	form  map[string][]string
	query map[string][]string
}

// readParams never fails. A body that cannot be parsed is treated as absent so
// the remaining sources still apply and the endpoint reports the missing
// parameter with its own status.
func readParams(w http.ResponseWriter, r *http.Request) params {
	p := params{query: r.URL.Query()}
	if r.Body == nil || r.Body == http.NoBody {
		return p
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			ignoreBody(r, err)
			return p
		}
		p.form = r.PostForm
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			ignoreBody(r, err)
			return p
		}
		p.form = r.MultipartForm.Value
	default:
		decoder := json.NewDecoder(r.Body)
		decoder.UseNumber()
		var body map[string]any
		if err := decoder.Decode(&body); err != nil {
			if !errors.Is(err, io.EOF) {
				ignoreBody(r, err)
			}
			return p
		}
		p.json = body
	}

	return p
}

func ignoreBody(r *http.Request, err error) {
	slog.Debug("Ignoring unparsable request body",
		"path", r.URL.Path,
		"content_type", r.Header.Get("Content-Type"),
		"error", err,
	)
}

func (p params) get(name string) string {
	if raw, ok := p.json[name]; ok && raw != nil {
		var value string
		switch v := raw.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = fmt.Sprint(v)
		}
		if value != "" {
			return value
		}
	}
	if values := p.form[name]; len(values) > 0 && values[0] != "" {
		return values[0]
	}
	if values := p.query[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func (p params) trimmed(name string) string {
	return strings.TrimSpace(p.get(name))
}

func (p params) issueToken() model.IssueTokenRequest {
	return model.IssueTokenRequest{Username: p.trimmed("username"), Password: p.get("password")}
}

// Passwords are taken verbatim; surrounding spaces are part of the secret.
func (p params) changePassword() model.ChangePasswordRequest {
	return model.ChangePasswordRequest{
		CurrentPassword: p.get("current_password"),
		NewPassword:     p.get("new_password"),
	}
}

func (p params) verifyToken() model.VerifyTokenRequest {
	return model.VerifyTokenRequest{Token: p.trimmed("token")}
}
