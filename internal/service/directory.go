package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-token-auth/internal/model"
)

type userStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, user model.User) (model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// UserDirectory owns user records and their bcrypt password hashes.
type UserDirectory struct {
	users userStore
	cost  int
	now   func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserDirectory(users userStore, cost int) *UserDirectory {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &UserDirectory{users: users, cost: cost, now: time.Now}
}

func (d *UserDirectory) FindByID(ctx context.Context, id int64) (model.User, error) {
	return d.users.FindByID(ctx, id)
}

// Authenticate resolves login as a username, falling back to an email
// address, and checks password against the stored hash. Every refusal is
// model.ErrInvalidCredentials; storage failures are returned as is.
func (d *UserDirectory) Authenticate(ctx context.Context, login string, password string) (model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return model.User{}, model.ErrInvalidCredentials
	}

	user, err := d.users.FindByUsername(ctx, login)
	if errors.Is(err, model.ErrUserNotFound) && strings.Contains(login, "@") {
		user, err = d.users.FindByEmail(ctx, login)
	}
	if errors.Is(err, model.ErrUserNotFound) {
		// Spend the same bcrypt work as a real comparison.
		_ = bcrypt.CompareHashAndPassword(d.dummy(), []byte(password))
		return model.User{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}

	if !d.VerifyPassword(user, password) {
		return model.User{}, model.ErrInvalidCredentials
	}

	return user, nil
}

// VerifyPassword compares plaintext with the user's stored hash in constant time.
func (d *UserDirectory) VerifyPassword(user model.User, plaintext string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}

func (d *UserDirectory) SetPassword(ctx context.Context, userID int64, plaintext string) error {
	hash, err := d.hash(plaintext)
	if err != nil {
		return err
	}
	return d.users.UpdatePassword(ctx, userID, hash)
}

func (d *UserDirectory) CreateUser(ctx context.Context, input model.NewUser) (model.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Password == "" {
		return model.User{}, fmt.Errorf("%w: username and password are required", model.ErrInvalidInput)
	}

	hash, err := d.hash(input.Password)
	if err != nil {
		return model.User{}, err
	}

	now := d.now().UTC()
	return d.users.Create(ctx, model.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		DisplayName:  input.DisplayName,
		AvatarURL:    input.AvatarURL,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (d *UserDirectory) hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), d.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (d *UserDirectory) dummy() []byte {
	d.dummyOnce.Do(func() {
		d.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), d.cost)
	})
	return d.dummyHash
}

// ProfileFor renders the public profile of user. Users without a stored
// avatar get their Gravatar URL.
func ProfileFor(user model.User) model.UserProfile {
	image := user.AvatarURL
	if image == "" {
		image = gravatarURL(user.Email)
	}

	return model.UserProfile{
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		ProfileImage: image,
	}
}

func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=96&d=mm&r=g"
}
