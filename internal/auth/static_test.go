package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadStaticVerifier(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "identities.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
tokens:
  dev-admin:
    uid: admin-1
    email: admin@example.com
    name: Ops Admin
  dev-user:
    uid: user-1
    email: user@example.com
`), 0o600))

		v, err := LoadStaticVerifier(path)
		require.NoError(t, err)

		id, err := v.Verify(context.Background(), "dev-admin")
		require.NoError(t, err)
		require.Equal(t, "admin-1", id.UID)
		require.Equal(t, "Ops Admin", id.Name)

		_, err = v.Verify(context.Background(), "nope")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("missing uid", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tokens:\n  t:\n    email: a@b.c\n"), 0o600))

		_, err := LoadStaticVerifier(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadStaticVerifier(filepath.Join(dir, "absent.yaml"))
		require.Error(t, err)
	})
}
