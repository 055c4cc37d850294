package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"go-token-auth/internal/model"
)

const (
	SecretOptionName = "jwt_secret_key"
	secretLength     = 32
)

type optionStore interface {
	Get(ctx context.Context, name string) (string, error)
	InsertIfAbsent(ctx context.Context, name string, value string) (string, error)
}

// SecretStore hands out the HMAC signing key. The key is generated once,
// persisted hex encoded, and cached after the first successful read.
type SecretStore struct {
	options optionStore
	random  io.Reader

	mu     sync.Mutex
	secret []byte
}

func NewSecretStore(options optionStore) *SecretStore {
	return &SecretStore{options: options, random: rand.Reader}
}

// Get returns the signing key, creating it on first use. Concurrent first
// callers are serialized here, and the storage insert only succeeds for one
// process, so every caller ends up with the persisted row.
func (s *SecretStore) Get(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secret != nil {
		return s.secret, nil
	}

	stored, err := s.options.Get(ctx, SecretOptionName)
	if errors.Is(err, model.ErrOptionNotFound) {
		stored, err = s.create(ctx)
	}
	if err != nil {
		return nil, errConfigUnavailable(err)
	}

	secret, err := decodeSecret(stored)
	if err != nil {
		return nil, errConfigUnavailable(err)
	}

	s.secret = secret
	return secret, nil
}

func (s *SecretStore) create(ctx context.Context) (string, error) {
	raw := make([]byte, secretLength)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}

	return s.options.InsertIfAbsent(ctx, SecretOptionName, hex.EncodeToString(raw))
}

func decodeSecret(stored string) ([]byte, error) {
	secret, err := hex.DecodeString(stored)
	if err != nil {
		return nil, fmt.Errorf("decode stored secret: %w", err)
	}
	if len(secret) < secretLength {
		return nil, fmt.Errorf("stored secret is %d bytes, want %d", len(secret), secretLength)
	}
	return secret, nil
}
