package auth

import (
	"context"
	"errors"

	"github.com/wolfeidau/onboard/internal/models"
)

// ErrUnauthenticated is returned when a bearer credential is absent, malformed or rejected.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrKeysUnavailable is returned when the identity provider's signing keys
// cannot be fetched. The credential itself was not judged.
var ErrKeysUnavailable = errors.New("identity provider keys unavailable")

// Identity is the verified principal asserted by the identity provider.
type Identity struct {
	UID   string `yaml:"uid"`
	Email string `yaml:"email"`
	Name  string `yaml:"name,omitempty"`
}

// Verifier checks a raw bearer token with the identity provider.
// Implementations return an error wrapping ErrUnauthenticated for rejected tokens
// and ErrKeysUnavailable when the provider cannot be reached.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type contextKey int

const (
	userContextKey contextKey = iota
)

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the authenticated user from the request context.
// Returns nil if no user is present (unauthenticated request).
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}
