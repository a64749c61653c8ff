package auth

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/store/memory"
)

// countingUsers records write calls made through the user store.
type countingUsers struct {
	store.UserStore
	writes atomic.Int32
}

func (c *countingUsers) CreateUser(ctx context.Context, user *models.User) error {
	c.writes.Add(1)
	return c.UserStore.CreateUser(ctx, user)
}

func (c *countingUsers) UpdateUser(ctx context.Context, user *models.User) error {
	c.writes.Add(1)
	return c.UserStore.UpdateUser(ctx, user)
}

type outageVerifier struct{}

func (outageVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	return nil, fmt.Errorf("%w: connection refused", ErrKeysUnavailable)
}

func newTestResolver(t *testing.T) (*Resolver, *countingUsers) {
	t.Helper()

	users := &countingUsers{UserStore: memory.NewStore()}
	verifier := NewStaticVerifier(map[string]Identity{
		"alice-token": {UID: "uid-alice", Email: "Alice@Example.com"},
		"bob-token":   {UID: "uid-bob", Email: "bob@example.com", Name: "Bob Builder"},
	})

	r := NewResolver(verifier, users)
	r.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	return r, users
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions user on first sight", func(t *testing.T) {
		r, users := newTestResolver(t)

		user, err := r.Resolve(ctx, "Bearer alice-token")
		require.NoError(t, err)
		require.Equal(t, "uid-alice", user.UserID)
		require.Equal(t, "alice@example.com", user.Email)
		require.Equal(t, "alice", user.DisplayName)
		require.Equal(t, models.RoleUser, user.Role)
		require.Empty(t, user.CompanyIDs)
		require.NotNil(t, user.Profile)
		require.Equal(t, int32(1), users.writes.Load())
	})

	t.Run("asserted name wins over email local part", func(t *testing.T) {
		r, _ := newTestResolver(t)

		user, err := r.Resolve(ctx, "Bearer bob-token")
		require.NoError(t, err)
		require.Equal(t, "Bob Builder", user.DisplayName)
	})

	t.Run("second resolve performs no writes", func(t *testing.T) {
		r, users := newTestResolver(t)

		first, err := r.Resolve(ctx, "Bearer alice-token")
		require.NoError(t, err)

		second, err := r.Resolve(ctx, "Bearer alice-token")
		require.NoError(t, err)

		require.Equal(t, first.UserID, second.UserID)
		require.Equal(t, int32(1), users.writes.Load())

		all, err := users.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("existing role is preserved", func(t *testing.T) {
		r, users := newTestResolver(t)

		admin := models.NewUser("uid-alice", "alice@example.com", "Alice", time.Now())
		admin.Role = models.RoleAdmin
		require.NoError(t, users.UserStore.CreateUser(ctx, admin))

		user, err := r.Resolve(ctx, "Bearer alice-token")
		require.NoError(t, err)
		require.True(t, user.IsAdmin())
		require.Zero(t, users.writes.Load())
	})

	t.Run("rejects bad credentials", func(t *testing.T) {
		r, users := newTestResolver(t)

		for _, header := range []string{"", "alice-token", "Basic alice-token", "Bearer ", "Bearer unknown"} {
			_, err := r.Resolve(ctx, header)
			require.ErrorIs(t, err, ErrUnauthenticated, "header %q", header)
		}
		require.Zero(t, users.writes.Load())
	})

	t.Run("provider outage is not unauthenticated", func(t *testing.T) {
		users := &countingUsers{UserStore: memory.NewStore()}
		r := NewResolver(outageVerifier{}, users)

		_, err := r.Resolve(ctx, "Bearer alice-token")
		require.ErrorIs(t, err, ErrKeysUnavailable)
		require.NotErrorIs(t, err, ErrUnauthenticated)
		require.Zero(t, users.writes.Load())
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		r, _ := newTestResolver(t)

		_, err := r.Resolve(ctx, "bearer alice-token")
		require.NoError(t, err)
	})
}
