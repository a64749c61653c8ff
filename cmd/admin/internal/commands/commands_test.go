package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/onboarding"
	"github.com/wolfeidau/onboard/internal/store"
	memorystore "github.com/wolfeidau/onboard/internal/store/memory"
)

func seedCompany(t *testing.T, st *memorystore.Store) *models.Company {
	t.Helper()
	company, err := onboarding.NewService(st).CreateCompany(context.Background(), "Acme", nil)
	require.NoError(t, err)
	return company
}

func TestGrantAdmin(t *testing.T) {
	ctx := context.Background()
	st := memorystore.NewStore()
	require.NoError(t, st.CreateUser(ctx, models.NewUser("user-1", "alice@example.com", "Alice", time.Now())))

	user, changed, err := (&GrantAdminCmd{Email: " Alice@Example.com "}).grant(ctx, st)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, models.RoleAdmin, user.Role)

	stored, err := st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, stored.IsAdmin())

	_, changed, err = (&GrantAdminCmd{Email: "alice@example.com"}).grant(ctx, st)
	require.NoError(t, err)
	require.False(t, changed)

	_, _, err = (&GrantAdminCmd{Email: "nobody@example.com"}).grant(ctx, st)
	require.ErrorIs(t, err, store.ErrUserNotFound)
	require.ErrorContains(t, err, "sign in once")
}

func TestInvite(t *testing.T) {
	ctx := context.Background()
	st := memorystore.NewStore()
	company := seedCompany(t, st)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inv, err := (&InviteCmd{CompanyID: company.CompanyID, Code: "WELCOME", ValidFor: 48 * time.Hour, CreatedBy: "admin-cli"}).invite(ctx, st, now)
	require.NoError(t, err)
	require.Equal(t, "WELCOME", inv.Code)
	require.Equal(t, "Acme", inv.CompanyName)
	require.True(t, inv.ExpiryDate.Equal(now.Add(48*time.Hour)))

	inv, err = (&InviteCmd{CompanyID: company.CompanyID, Expiry: "2027-01-01"}).invite(ctx, st, now)
	require.NoError(t, err)
	require.NotEmpty(t, inv.Code)
	require.Equal(t, 2027, inv.ExpiryDate.Year())

	_, err = (&InviteCmd{CompanyID: "missing"}).invite(ctx, st, now)
	require.ErrorIs(t, err, store.ErrCompanyNotFound)
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	st := memorystore.NewStore()
	company := seedCompany(t, st)

	// drop the array so the rebuild has to restore it
	require.NoError(t, st.SetStepArray(ctx, company.CompanyID, nil))

	results, err := (&ResyncCmd{CompanyID: company.CompanyID}).resync(ctx, st)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, onboarding.ResyncRebuilt, results[0].Action)
	require.Len(t, results[0].Healed, 7)

	results, err = (&ResyncCmd{MaxTries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}).resync(ctx, st)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Healed)
}

func TestReseed(t *testing.T) {
	ctx := context.Background()
	st := memorystore.NewStore()
	company := seedCompany(t, st)

	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: kickoff
  name: Kickoff call
  description: Meet the team
- id: connect_data
  name: Connect data
  description: Share data with us
  todoLink: /companies/{company_id}/data-sharing
`), 0o600))

	ids, err := (&ReseedCmd{CompanyID: company.CompanyID, Template: path, Resync: true}).reseed(ctx, st)
	require.NoError(t, err)
	require.Equal(t, []string{"kickoff", "connect_data"}, ids)

	stored, err := st.GetCompany(ctx, company.CompanyID)
	require.NoError(t, err)
	links := map[string]string{}
	for _, step := range stored.OnboardingSteps {
		links[step.ID] = step.TodoLink
	}
	require.Equal(t, map[string]string{
		"kickoff":      "",
		"connect_data": "/companies/" + company.CompanyID + "/data-sharing",
	}, links)
}
