package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-token-auth/internal/config"
	"go-token-auth/internal/handler"
	"go-token-auth/internal/metrics"
	"go-token-auth/internal/middleware"
	"go-token-auth/internal/model"
	"go-token-auth/internal/repository/memory"
	"go-token-auth/internal/service"
	"go-token-auth/internal/token"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Health(context.Context) error { return f.err }

type serverOptions struct {
	prefix  string
	session service.SessionOptions
	dbErr   error
}

func newTestServer(t *testing.T, opts serverOptions) (*httptest.Server, *metrics.Metrics) {
	t.Helper()

	users := memory.NewUsers()
	directory := service.NewUserDirectory(users, bcrypt.MinCost)
	for _, seed := range []struct {
		id   int64
		name string
	}{{1, "alice"}, {42, "zaphod"}} {
		hash, err := bcrypt.GenerateFromPassword([]byte("password-"+seed.name), bcrypt.MinCost)
		require.NoError(t, err)
		_, err = users.Create(context.Background(), model.User{
			ID:           seed.id,
			Username:     seed.name,
			Email:        seed.name + "@example.com",
			PasswordHash: string(hash),
		})
		require.NoError(t, err)
	}

	m := metrics.New()
	secrets := service.NewSecretStore(memory.NewOptions())
	sessions := service.NewSessionAuthenticator(secrets, memory.NewSlots(), directory, opts.session, m)
	auth := service.NewAuthService(secrets, service.NewCredentialVerifier(directory), sessions, directory,
		service.AuthOptions{Profile: token.ProfileMinimal, MinPasswordLength: 8}, m)

	cfg := &config.Config{
		APIPrefix:      opts.prefix,
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"*"},
	}

	server := httptest.NewServer(New(cfg, middleware.NewAuthMiddleware(sessions), Handlers{
		Token:  handler.NewTokenHandler(auth, config.VerifyModeEnvelope),
		User:   handler.NewUserHandler(auth),
		Health: handler.NewHealthHandler(fakeDB{err: opts.dbErr}),
	}, m))
	t.Cleanup(server.Close)

	return server, m
}

func do(t *testing.T, method string, url string, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(payload))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	decoded := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func issue(t *testing.T, base string, username string, password string) string {
	t.Helper()

	resp, body := do(t, http.MethodPost, base+"/generate-token", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(86400), body["expires_in"])
	raw, ok := body["token"].(string)
	require.True(t, ok)
	return raw
}

func TestRouter_ProfileRoundTripAndTamper(t *testing.T) {
	server, _ := newTestServer(t, serverOptions{prefix: "/jwt/v1"})
	base := server.URL + "/jwt/v1"

	raw := issue(t, base, "zaphod", "password-zaphod")

	resp, profile := do(t, http.MethodGet, base+"/get-user-data", raw, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(42), profile["user_id"])
	assert.Equal(t, "zaphod", profile["username"])

	signatureStart := strings.LastIndex(raw, ".") + 1
	replacement := "A"
	if raw[signatureStart] == 'A' {
		replacement = "B"
	}
	tampered := raw[:signatureStart] + replacement + raw[signatureStart+1:]

	resp, body := do(t, http.MethodGet, base+"/get-user-data", tampered, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TOKEN", errBody["code"])
}

func TestRouter_GateRejectsMissingHeader(t *testing.T) {
	server, _ := newTestServer(t, serverOptions{prefix: "/jwt/v1"})
	base := server.URL + "/jwt/v1"

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/get-user-data"},
		{http.MethodPost, "/change-password"},
	} {
		resp, body := do(t, route.method, base+route.path, "", map[string]string{
			"current_password": "password-alice",
			"new_password":     "brand-new-password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, route.path)
		errBody, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "MISSING_TOKEN", errBody["code"])
	}

	// The change-password body above must not have been applied.
	issue(t, base, "alice", "password-alice")
}

func TestRouter_ChangePasswordFlow(t *testing.T) {
	server, _ := newTestServer(t, serverOptions{prefix: "/jwt/v1"})
	base := server.URL + "/jwt/v1"
	raw := issue(t, base, "alice", "password-alice")

	resp, _ := do(t, http.MethodPost, base+"/change-password", raw, map[string]string{
		"current_password": "wrong",
		"new_password":     "brand-new-password",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := do(t, http.MethodPost, base+"/change-password", raw, map[string]string{
		"current_password": "password-alice",
		"new_password":     "brand-new-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, _ = do(t, http.MethodPost, base+"/generate-token", "", map[string]string{"username": "alice", "password": "password-alice"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	issue(t, base, "alice", "brand-new-password")
}

func TestRouter_SingleSession(t *testing.T) {
	server, _ := newTestServer(t, serverOptions{prefix: "/jwt/v1", session: service.SessionOptions{SingleSession: true}})
	base := server.URL + "/jwt/v1"

	tokenA := issue(t, base, "alice", "password-alice")
	// Tokens are second-granular; wait for the next second so B differs from A.
	time.Sleep(time.Until(time.Now().Truncate(time.Second).Add(time.Second)) + 10*time.Millisecond)
	tokenB := issue(t, base, "alice", "password-alice")
	require.NotEqual(t, tokenA, tokenB)

	resp, body := do(t, http.MethodGet, base+"/get-user-data", tokenA, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "TOKEN_SUPERSEDED", errBody["code"])

	resp, _ = do(t, http.MethodGet, base+"/get-user-data", tokenB, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, http.MethodPost, base+"/verify-token", "", map[string]string{"token": tokenA})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestRouter_RootPrefix(t *testing.T) {
	server, _ := newTestServer(t, serverOptions{prefix: ""})

	raw := issue(t, server.URL, "alice", "password-alice")
	resp, body := do(t, http.MethodPost, server.URL+"/verify-token", "", map[string]string{"token": raw})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, _ = do(t, http.MethodGet, server.URL+"/jwt/v1/get-user-data", raw, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t, serverOptions{prefix: "/jwt/v1"})

	resp, _ := do(t, http.MethodGet, server.URL+"/jwt/v1/generate-token", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_Operational(t *testing.T) {
	server, _ := newTestServer(t, serverOptions{prefix: "/jwt/v1"})
	issue(t, server.URL+"/jwt/v1", "alice", "password-alice")

	resp, _ := do(t, http.MethodGet, server.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body := do(t, http.MethodGet, server.URL+"/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])

	resp, _ = do(t, http.MethodGet, server.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	down, _ := newTestServer(t, serverOptions{dbErr: errors.New("connection refused")})
	resp, _ = do(t, http.MethodGet, down.URL+"/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
