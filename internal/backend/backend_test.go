package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	memorystore "github.com/wolfeidau/onboard/internal/store/memory"
)

func TestFlagsValidate(t *testing.T) {
	require.Error(t, (&PostgresFlags{}).Validate())
	require.NoError(t, (&PostgresFlags{ConnString: "postgres://localhost/onboard"}).Validate())

	require.Error(t, (&AWSFlags{}).Validate())
	require.NoError(t, (&AWSFlags{Environment: "test"}).Validate())
}

func TestAWSTables(t *testing.T) {
	tables := (&AWSFlags{Environment: "prod"}).Tables()
	require.Equal(t, "prod_users", tables.Users)
	require.Equal(t, "prod_onboarding_steps", tables.Steps)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		st, closeFn, err := (&Flags{StoreType: StoreMemory}).Open(ctx)
		require.NoError(t, err)
		defer closeFn()
		require.IsType(t, &memorystore.Store{}, st)
	})

	t.Run("postgres requires a connection string", func(t *testing.T) {
		_, _, err := (&Flags{StoreType: StorePostgres}).Open(ctx)
		require.ErrorContains(t, err, "connection string is required")
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := (&Flags{StoreType: "sqlite"}).Open(ctx)
		require.ErrorContains(t, err, "unknown store type")
	})
}
