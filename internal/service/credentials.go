package service

import (
	"context"
	"errors"

	"go-token-auth/internal/model"
)

type directory interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	Authenticate(ctx context.Context, login string, password string) (model.User, error)
	VerifyPassword(user model.User, plaintext string) bool
	SetPassword(ctx context.Context, userID int64, plaintext string) error
}

// CredentialVerifier checks passwords through the directory. It never
// hashes anything itself.
type CredentialVerifier struct {
	directory directory
}

func NewCredentialVerifier(directory directory) *CredentialVerifier {
	return &CredentialVerifier{directory: directory}
}

func (v *CredentialVerifier) Authenticate(ctx context.Context, username string, password string) (int64, error) {
	user, err := v.directory.Authenticate(ctx, username, password)
	if errors.Is(err, model.ErrInvalidCredentials) {
		return 0, errInvalidCredentials()
	}
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (v *CredentialVerifier) CheckPassword(ctx context.Context, userID int64, plaintext string) (bool, error) {
	user, err := v.directory.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return false, errUserGone()
	}
	if err != nil {
		return false, err
	}
	return v.directory.VerifyPassword(user, plaintext), nil
}

func (v *CredentialVerifier) SetPassword(ctx context.Context, userID int64, plaintext string) error {
	err := v.directory.SetPassword(ctx, userID, plaintext)
	if errors.Is(err, model.ErrUserNotFound) {
		return errUserGone()
	}
	return err
}
