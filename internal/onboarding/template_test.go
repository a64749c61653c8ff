package onboarding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/onboard/internal/models"
)

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()

	write := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(dir, t.Name()+".yaml")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	t.Run("valid", func(t *testing.T) {
		path := write(t, `
- id: kickoff
  name: Kickoff
  description: Meet the team
  todoLink: /companies/{company_id}/kickoff
  buttonText: Start
- id: wrapup
  name: Wrap up
  status: in_progress
`)
		defs, err := LoadTemplate(path)
		require.NoError(t, err)
		require.Len(t, defs, 2)
		require.Equal(t, "Start", defs[0].ButtonText)
		require.Equal(t, models.StepStatusInProgress, defs[1].Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		path := write(t, "- id: a\n  status: finished\n")
		_, err := LoadTemplate(path)
		require.ErrorIs(t, err, ErrInvalidTemplate)
	})

	t.Run("not a list", func(t *testing.T) {
		path := write(t, "id: a\n")
		_, err := LoadTemplate(path)
		require.ErrorIs(t, err, ErrInvalidTemplate)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTemplate(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})
}

func TestDefaultTemplateIsValid(t *testing.T) {
	require.NoError(t, validateDefinitions(DefaultTemplate()))
}
