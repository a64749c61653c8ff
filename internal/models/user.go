package models

import (
	"slices"
	"strings"
	"time"
)

// Role is the persisted authorization role of a user.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is the local record of an identity issued by the external identity provider.
// The user id is the provider's subject and is never generated locally.
type User struct {
	UserID      string         `dynamodbav:"user_id" json:"id"`
	Email       string         `dynamodbav:"email" json:"email"`
	DisplayName string         `dynamodbav:"display_name" json:"display_name"`
	Role        Role           `dynamodbav:"role" json:"role"`
	CompanyIDs  []string       `dynamodbav:"company_ids,stringset,omitempty" json:"company_ids"`
	CreatedAt   time.Time      `dynamodbav:"created_at" json:"created_at"`
	Profile     map[string]any `dynamodbav:"profile,omitempty" json:"profile"`
}

// IsAdmin returns true if the persisted role is admin.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasCompany returns true if the company id is in the user's membership set.
func (u *User) HasCompany(companyID string) bool {
	return slices.Contains(u.CompanyIDs, companyID)
}

// NewUser builds a freshly provisioned user with role user and no memberships.
// When name is empty the display name falls back to the local part of the email.
func NewUser(userID, email, name string, now time.Time) *User {
	display := name
	if display == "" {
		display, _, _ = strings.Cut(email, "@")
	}

	return &User{
		UserID:      userID,
		Email:       email,
		DisplayName: display,
		Role:        RoleUser,
		CompanyIDs:  []string{},
		CreatedAt:   now.UTC(),
		Profile:     map[string]any{},
	}
}
