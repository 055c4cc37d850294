package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"go-token-auth/internal/model"
)

const lastTokenMetaKey = "jwt_last_token"

// TokenRepository keeps the most recently issued token per user in user_meta.
type TokenRepository struct {
	db Querier
}

func NewTokenRepository(db Querier) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Get(ctx context.Context, userID int64) (string, error) {
	var token string
	err := r.db.QueryRow(ctx,
		`SELECT meta_value FROM user_meta WHERE user_id = $1 AND meta_key = $2`,
		userID, lastTokenMetaKey).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrTokenNotFound
	}
	if err != nil {
		return "", oops.In("token_repository").With("user_id", userID).Wrapf(err, "get last issued token")
	}
	return token, nil
}

// Put overwrites the slot. ttl is ignored; the slot is only ever compared
// against tokens that are still within their own expiry.
func (r *TokenRepository) Put(ctx context.Context, userID int64, token string, _ time.Duration) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_meta (user_id, meta_key, meta_value, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, meta_key)
		 DO UPDATE SET meta_value = EXCLUDED.meta_value, updated_at = EXCLUDED.updated_at`,
		userID, lastTokenMetaKey, token, time.Now().UTC())
	if err != nil {
		return oops.In("token_repository").With("user_id", userID).Wrapf(err, "store last issued token")
	}
	return nil
}

func (r *TokenRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM user_meta WHERE user_id = $1 AND meta_key = $2`, userID, lastTokenMetaKey)
	if err != nil {
		return oops.In("token_repository").With("user_id", userID).Wrapf(err, "clear last issued token")
	}
	return nil
}
