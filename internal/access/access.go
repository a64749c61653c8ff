package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// Checker answers authorization questions from the persisted user record.
// Every check reads the user from the store; a missing user or a store error
// denies access.
type Checker struct {
	users store.UserStore
}

// NewChecker creates a new access checker.
func NewChecker(users store.UserStore) *Checker {
	return &Checker{users: users}
}

// IsAdmin returns true if the user's persisted role is admin.
func (c *Checker) IsAdmin(ctx context.Context, userID string) bool {
	user, ok := c.load(ctx, userID)
	return ok && user.IsAdmin()
}

// CanAccessTenant returns true if the user is an admin or a member of the company.
func (c *Checker) CanAccessTenant(ctx context.Context, userID, companyID string) bool {
	user, ok := c.load(ctx, userID)
	if !ok {
		return false
	}
	return user.IsAdmin() || user.HasCompany(companyID)
}

func (c *Checker) load(ctx context.Context, userID string) (*models.User, bool) {
	if userID == "" {
		return nil, false
	}

	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("failed to load user for access check")
		}
		return nil, false
	}

	return user, true
}

// GrantAdmin promotes the user with the given email to admin. It is idempotent:
// a user who is already an admin is left untouched and changed is false.
func (c *Checker) GrantAdmin(ctx context.Context, email string) (user *models.User, changed bool, err error) {
	user, err = c.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, false, fmt.Errorf("failed to find user %s: %w", email, err)
	}

	if user.IsAdmin() {
		return user, false, nil
	}

	user.Role = models.RoleAdmin
	if err := c.users.UpdateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to update user role: %w", err)
	}

	log.Ctx(ctx).Info().Str("user_id", user.UserID).Str("email", user.Email).Msg("granted admin role")

	return user, true, nil
}
