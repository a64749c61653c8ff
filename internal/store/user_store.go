package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/onboard/internal/models"
)

// Errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserStore manages user documents.
type UserStore interface {
	// GetUser retrieves a user by id.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// GetUserByEmail retrieves the first user with the given email.
	// Returns ErrUserNotFound if no user matches.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateUser stores a new user.
	// Returns ErrUserExists if a user with the same id already exists.
	CreateUser(ctx context.Context, user *models.User) error

	// UpdateUser overwrites the mutable fields of a user (display name, role, profile).
	// Membership is changed through MembershipStore only.
	// Returns ErrUserNotFound if the user doesn't exist.
	UpdateUser(ctx context.Context, user *models.User) error

	// ListUsers returns every user.
	ListUsers(ctx context.Context) ([]*models.User, error)
}
