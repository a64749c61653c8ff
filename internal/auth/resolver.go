package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// Resolver turns an Authorization header into a local user record, provisioning
// the record the first time an identity is seen.
type Resolver struct {
	verifier Verifier
	users    store.UserStore
	now      func() time.Time
}

// NewResolver creates a new resolver.
func NewResolver(verifier Verifier, users store.UserStore) *Resolver {
	return &Resolver{
		verifier: verifier,
		users:    users,
		now:      time.Now,
	}
}

// Resolve verifies the bearer credential in header and returns the user, creating
// it with role user and no memberships if absent. An existing record is returned
// without any write.
func (r *Resolver) Resolve(ctx context.Context, header string) (*models.User, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	id, err := r.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
		// provider outages are not a verdict on the credential
		return nil, fmt.Errorf("failed to verify credential: %w", err)
	}

	user, err := r.users.GetUser(ctx, id.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user = models.NewUser(id.UID, strings.ToLower(id.Email), id.Name, r.now())
	if err := r.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			// lost a race with a concurrent first request
			return r.users.GetUser(ctx, id.UID)
		}
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("user_id", user.UserID).
		Str("email", user.Email).
		Msg("provisioned user")

	return user, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
