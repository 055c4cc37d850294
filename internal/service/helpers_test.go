package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-token-auth/internal/model"
	"go-token-auth/internal/repository/memory"
	"go-token-auth/internal/token"
	"go-token-auth/pkg/apierror"
)

type fixture struct {
	users     *memory.Users
	options   *memory.Options
	slots     *memory.Slots
	directory *UserDirectory
	secrets   *SecretStore
	sessions  *SessionAuthenticator
	auth      *AuthService
	clock     time.Time
}

type fixtureOptions struct {
	session SessionOptions
	profile token.Profile
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	f := &fixture{
		users:   memory.NewUsers(),
		options: memory.NewOptions(),
		slots:   memory.NewSlots(),
		clock:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.directory = NewUserDirectory(f.users, bcrypt.MinCost)
	f.secrets = NewSecretStore(f.options)
	f.sessions = NewSessionAuthenticator(f.secrets, f.slots, f.directory, opts.session, nil)
	f.auth = NewAuthService(
		f.secrets,
		NewCredentialVerifier(f.directory),
		f.sessions,
		f.directory,
		AuthOptions{Profile: opts.profile, MinPasswordLength: 8},
		nil,
	)

	now := func() time.Time { return f.clock }
	f.sessions.now = now
	f.auth.now = now

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) addUser(t *testing.T, id int64, username string, password string) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user, err := f.users.Create(context.Background(), model.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    "First " + username,
		LastName:     "Last " + username,
		DisplayName:  username,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) issue(t *testing.T, username string, password string) string {
	t.Helper()

	resp, err := f.auth.IssueToken(context.Background(), username, password)
	require.NoError(t, err)
	return resp.Token
}

func requireAPIError(t *testing.T, err error, code string, status int) *apierror.APIError {
	t.Helper()

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
	assert.Equal(t, status, apiErr.HTTPStatus)
	return apiErr
}
