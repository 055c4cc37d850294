//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"go-token-auth/internal/config"
	"go-token-auth/internal/database"
	"go-token-auth/internal/handler"
	"go-token-auth/internal/metrics"
	"go-token-auth/internal/middleware"
	"go-token-auth/internal/model"
	"go-token-auth/internal/repository"
	"go-token-auth/internal/router"
	"go-token-auth/internal/service"
	"go-token-auth/internal/token"
)

// startPostgres runs a throwaway Postgres, applies migrations and returns a
// connected pool.
func startPostgres(t *testing.T) (*database.DB, string) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tokenauth"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(connStr))

	db, err := database.New(ctx, connStr, 5, 1, 3)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db, connStr
}

type testServer struct {
	*httptest.Server
	base      string
	db        *database.DB
	directory *service.UserDirectory
}

func newTestServer(t *testing.T, db *database.DB, opts service.SessionOptions) *testServer {
	t.Helper()

	userRepo := repository.NewUserRepository(db.Pool)
	directory := service.NewUserDirectory(userRepo, 4)
	secrets := service.NewSecretStore(repository.NewOptionRepository(db.Pool))
	sessions := service.NewSessionAuthenticator(secrets, repository.NewTokenRepository(db.Pool), directory, opts, nil)
	auth := service.NewAuthService(secrets, service.NewCredentialVerifier(directory), sessions, directory,
		service.AuthOptions{Profile: token.ProfileFull, MinPasswordLength: 8}, nil)

	cfg := &config.Config{
		APIPrefix:      "/jwt/v1",
		RequestTimeout: 10 * time.Second,
		CORSOrigins:    []string{"*"},
	}

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(sessions), router.Handlers{
		Token:  handler.NewTokenHandler(auth, config.VerifyModeEnvelope),
		User:   handler.NewUserHandler(auth),
		Health: handler.NewHealthHandler(db),
	}, metrics.New()))
	t.Cleanup(server.Close)

	return &testServer{Server: server, base: server.URL + "/jwt/v1", db: db, directory: directory}
}

func (s *testServer) createUser(t *testing.T, username string, password string) model.User {
	t.Helper()

	user, err := s.directory.CreateUser(context.Background(), model.NewUser{
		Username:  username,
		Email:     username + "@example.com",
		Password:  password,
		FirstName: "Test",
		LastName:  username,
	})
	require.NoError(t, err)
	return user
}

func doJSON(t *testing.T, method string, url string, bearer string, payload any) (int, map[string]any) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func (s *testServer) login(t *testing.T, username string, password string) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, s.base+"/generate-token", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, body)

	raw, ok := body["token"].(string)
	require.True(t, ok)
	return raw
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}
