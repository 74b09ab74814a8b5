package user

import (
	"context"
	"errors"
	"strings"
)

// Common errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidName  = errors.New("display name must not be empty")
)

// Store is the persistence interface the service depends on
type Store interface {
	// UserByID returns nil, nil when the user does not exist
	UserByID(ctx context.Context, userID string) (*User, error)
	UpsertUser(ctx context.Context, u *User) (*User, error)
}

// Service handles user registration and profile lookups
type Service struct {
	store Store
}

// NewService creates a new user service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register creates the user on first contact and refreshes the display
// name on subsequent calls.
func (s *Service) Register(ctx context.Context, userID, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	return s.store.UpsertUser(ctx, &User{
		ID:   userID,
		Name: name,
	})
}

// Get retrieves a user by ID
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
