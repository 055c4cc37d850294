package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-token-auth/internal/model"
)

var userRowColumns = []string{
	"id", "username", "email", "first_name", "last_name", "display_name", "avatar_url",
	"password_hash", "created_at", "updated_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestUserRepository_FindByID(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      model.User
		wantErr   error
		errMsg    string
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userRowColumns).
					AddRow(int64(42), "alice", "alice@example.com", "Alice", "Liddell", "Alice L.", "",
						"$2a$04$hash", created, created)
				mock.ExpectQuery(`(?s)SELECT id, username, email .* FROM users WHERE id = \$1`).
					WithArgs(int64(42)).
					WillReturnRows(rows)
			},
			want: model.User{
				ID: 42, Username: "alice", Email: "alice@example.com", FirstName: "Alice",
				LastName: "Liddell", DisplayName: "Alice L.", PasswordHash: "$2a$04$hash",
				CreatedAt: created, UpdatedAt: created,
			},
		},
		{
			name: "missing row",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE id = \$1`).
					WithArgs(int64(42)).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: model.ErrUserNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE id = \$1`).
					WithArgs(int64(42)).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setupMock(mock)

			got, err := NewUserRepository(mock).FindByID(context.Background(), 42)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, model.ErrUserNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestUserRepository_FindByUsernameAndEmail(t *testing.T) {
	now := time.Now().UTC()
	row := func() *pgxmock.Rows {
		return pgxmock.NewRows(userRowColumns).
			AddRow(int64(7), "Bob", "bob@example.com", "", "", "", "", "hash", now, now)
	}

	mock := newMockPool(t)
	mock.ExpectQuery(`WHERE lower\(username\) = lower\(\$1\)`).WithArgs("bob").WillReturnRows(row())
	mock.ExpectQuery(`WHERE lower\(email\) = lower\(\$1\)`).WithArgs("bob@example.com").WillReturnRows(row())
	mock.ExpectQuery(`WHERE lower\(username\) = lower\(\$1\)`).WithArgs("nobody").WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(mock)

	byName, err := repo.FindByUsername(context.Background(), "  bob ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), byName.ID)

	byEmail, err := repo.FindByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bob", byEmail.Username)

	_, err = repo.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUserRepository_Create(t *testing.T) {
	now := time.Now().UTC()
	u := model.User{Username: "carol", Email: "carol@example.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}

	t.Run("returns generated id", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("carol", "carol@example.com", "", "", "", "", "hash", now, now).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

		created, err := NewUserRepository(mock).Create(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, int64(3), created.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := NewUserRepository(mock).Create(context.Background(), u)
		assert.ErrorIs(t, err, model.ErrUserAlreadyExists)
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	t.Run("updates one row", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET password_hash = \$2`).
			WithArgs(int64(42), "new-hash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserRepository(mock).UpdatePassword(context.Background(), 42, "new-hash"))
	})

	t.Run("unknown user", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET password_hash = \$2`).
			WithArgs(int64(9), "new-hash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserRepository(mock).UpdatePassword(context.Background(), 9, "new-hash")
		assert.ErrorIs(t, err, model.ErrUserNotFound)
	})
}
