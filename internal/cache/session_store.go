package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"go-token-auth/internal/model"
)

// SessionStore keeps the last issued token per user under
// auth:last_token:<user_id>, expiring together with the token.
type SessionStore struct {
	client redis.Cmdable
}

func NewSessionStore(client redis.Cmdable) *SessionStore {
	return &SessionStore{client: client}
}

func lastTokenKey(userID int64) string {
	return fmt.Sprintf("auth:last_token:%d", userID)
}

func (s *SessionStore) Get(ctx context.Context, userID int64) (string, error) {
	token, err := s.client.Get(ctx, lastTokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrTokenNotFound
	}
	if err != nil {
		return "", oops.In("session_store").With("user_id", userID).Wrapf(err, "get last issued token")
	}
	return token, nil
}

func (s *SessionStore) Put(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, lastTokenKey(userID), token, ttl).Err(); err != nil {
		return oops.In("session_store").With("user_id", userID).Wrapf(err, "store last issued token")
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, lastTokenKey(userID)).Err(); err != nil {
		return oops.In("session_store").With("user_id", userID).Wrapf(err, "clear last issued token")
	}
	return nil
}
