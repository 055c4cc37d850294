// Package memory provides map-backed stores with the same contracts as the
// Postgres repositories. Service, handler and router tests run against them.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-token-auth/internal/model"
)

type Users struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]model.User
}

func NewUsers() *Users {
	return &Users{nextID: 1, byID: map[int64]model.User{}}
}

func (s *Users) FindByID(_ context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *Users) FindByUsername(_ context.Context, username string) (model.User, error) {
	return s.findBy(func(u model.User) bool {
		return strings.EqualFold(u.Username, strings.TrimSpace(username))
	})
}

func (s *Users) FindByEmail(_ context.Context, email string) (model.User, error) {
	return s.findBy(func(u model.User) bool {
		return u.Email != "" && strings.EqualFold(u.Email, strings.TrimSpace(email))
	})
}

func (s *Users) findBy(match func(model.User) bool) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found model.User
	for _, user := range s.byID {
		if match(user) && (found.ID == 0 || user.ID < found.ID) {
			found = user
		}
	}
	if found.ID == 0 {
		return model.User{}, model.ErrUserNotFound
	}
	return found, nil
}

// Create assigns the next id unless user.ID is already set.
func (s *Users) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if strings.EqualFold(existing.Username, user.Username) {
			return model.User{}, model.ErrUserAlreadyExists
		}
	}

	if user.ID == 0 {
		user.ID = s.nextID
	}
	if user.ID >= s.nextID {
		s.nextID = user.ID + 1
	}
	s.byID[user.ID] = user
	return user, nil
}

func (s *Users) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	s.byID[id] = user
	return nil
}

func (s *Users) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

type Options struct {
	mu     sync.Mutex
	values map[string]string
}

func NewOptions() *Options {
	return &Options{values: map[string]string{}}
}

func (s *Options) Get(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[name]
	if !ok {
		return "", model.ErrOptionNotFound
	}
	return value, nil
}

func (s *Options) InsertIfAbsent(_ context.Context, name string, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.values[name]; ok {
		return existing, nil
	}
	s.values[name] = value
	return value, nil
}

// Slots ignores ttl; tokens carry their own expiry.
type Slots struct {
	mu     sync.Mutex
	tokens map[int64]string
}

func NewSlots() *Slots {
	return &Slots{tokens: map[int64]string{}}
}

func (s *Slots) Get(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[userID]
	if !ok {
		return "", model.ErrTokenNotFound
	}
	return token, nil
}

func (s *Slots) Put(_ context.Context, userID int64, token string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = token
	return nil
}

func (s *Slots) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
	return nil
}
