package onboarding

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/store/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	st := memory.NewStore()
	opts = append([]Option{WithClock(fixedClock(testNow)), WithIDGenerator(sequentialIDs())}, opts...)
	return NewService(st, opts...), st
}

func stepIDs(steps []models.OnboardingStep) []string {
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestCreateCompany(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	require.NoError(t, st.CreateUser(ctx, models.NewUser("user-1", "alice@example.com", "Alice", testNow)))

	company, err := svc.CreateCompany(ctx, "  Acme  ", []string{"user-1", "ghost"})
	require.NoError(t, err)
	require.Equal(t, "id-1", company.CompanyID)
	require.Equal(t, "Acme", company.Name)
	require.Equal(t, []string{"user-1"}, company.UserIDs)
	require.Len(t, company.OnboardingSteps, 7)

	u, err := st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"id-1"}, u.CompanyIDs)

	_, err = svc.CreateCompany(ctx, " ", nil)
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateDefaultSteps(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	require.NoError(t, st.CreateCompany(ctx, models.NewCompany("c1", "Acme", testNow)))

	steps, err := svc.CreateDefaultSteps(ctx, "c1")
	require.NoError(t, err)

	want := []string{
		"setup_account", "process_payment", "data_integration", "refer_friend",
		"ai_agents", "training_session", "performance_review",
	}
	require.Equal(t, want, stepIDs(steps))

	for _, s := range steps {
		require.Equal(t, models.StepStatusTodo, s.Status)
		require.Equal(t, testNow, s.UpdatedAt)
	}
	require.Equal(t, "/companies/c1/data-sharing", steps[2].TodoLink)
	require.Equal(t, "/companies/c1/ai-agents", steps[4].TodoLink)

	company, err := st.GetCompany(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, want, stepIDs(company.OnboardingSteps))

	byID, err := svc.ListSteps(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, byID, 7)
	require.Equal(t, "Billing Setup", byID["process_payment"].Name)
}

func TestListSteps(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	_, err := svc.ListSteps(ctx, "missing")
	require.ErrorIs(t, err, store.ErrCompanyNotFound)

	require.NoError(t, st.CreateCompany(ctx, models.NewCompany("c1", "Acme", testNow)))

	steps, err := svc.ListSteps(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, steps)
	require.Empty(t, steps)
}

func TestUpdateStepStatus(t *testing.T) {
	ctx := context.Background()
	later := testNow.Add(time.Hour)

	setup := func(t *testing.T) (*Service, *memory.Store) {
		svc, st := newTestService(t)
		require.NoError(t, st.CreateCompany(ctx, models.NewCompany("c1", "Acme", testNow)))
		_, err := svc.CreateDefaultSteps(ctx, "c1")
		require.NoError(t, err)
		svc.now = fixedClock(later)
		return svc, st
	}

	t.Run("updates subcollection and array", func(t *testing.T) {
		svc, st := setup(t)

		step, err := svc.UpdateStepStatus(ctx, "c1", "process_payment", models.StepStatusDone)
		require.NoError(t, err)
		require.Equal(t, models.StepStatusDone, step.Status)
		require.Equal(t, later, step.UpdatedAt)
		require.Equal(t, "Billing Setup", step.Name)

		stored, err := st.GetStep(ctx, "c1", "process_payment")
		require.NoError(t, err)
		require.Equal(t, models.StepStatusDone, stored.Status)

		company, err := st.GetCompany(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, models.StepStatusDone, company.OnboardingSteps[1].Status)
		require.Equal(t, models.StepStatusTodo, company.OnboardingSteps[0].Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		svc, _ := setup(t)

		_, err := svc.UpdateStepStatus(ctx, "c1", "process_payment", "finished")
		require.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("missing company", func(t *testing.T) {
		svc, _ := setup(t)

		_, err := svc.UpdateStepStatus(ctx, "nope", "process_payment", models.StepStatusDone)
		require.ErrorIs(t, err, store.ErrCompanyNotFound)
	})

	t.Run("step only in array is not found", func(t *testing.T) {
		svc, st := setup(t)

		company, err := st.GetCompany(ctx, "c1")
		require.NoError(t, err)
		array := append(company.OnboardingSteps, models.OnboardingStep{ID: "ghost", Status: models.StepStatusTodo})
		require.NoError(t, st.SetStepArray(ctx, "c1", array))

		_, err = svc.UpdateStepStatus(ctx, "c1", "ghost", models.StepStatusDone)
		require.ErrorIs(t, err, store.ErrStepNotFound)

		company, err = st.GetCompany(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, company.OnboardingSteps, 8)
	})

	t.Run("step missing from array is healed", func(t *testing.T) {
		svc, st := setup(t)

		require.NoError(t, st.SetStepArray(ctx, "c1", nil))

		_, err := svc.UpdateStepStatus(ctx, "c1", "ai_agents", models.StepStatusInProgress)
		require.NoError(t, err)

		company, err := st.GetCompany(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, company.OnboardingSteps, 7)

		var found bool
		for _, s := range company.OnboardingSteps {
			if s.ID == "ai_agents" {
				found = true
				require.Equal(t, models.StepStatusInProgress, s.Status)
			}
		}
		require.True(t, found)
	})

	t.Run("notifies listeners", func(t *testing.T) {
		var got []StepUpdated
		svc, st := newTestService(t, OnStepUpdated(func(_ context.Context, ev StepUpdated) {
			got = append(got, ev)
		}))
		require.NoError(t, st.CreateCompany(ctx, models.NewCompany("c1", "Acme", testNow)))
		_, err := svc.CreateDefaultSteps(ctx, "c1")
		require.NoError(t, err)

		_, err = svc.UpdateStepStatus(ctx, "c1", "setup_account", models.StepStatusDone)
		require.NoError(t, err)

		require.Len(t, got, 1)
		require.Equal(t, "c1", got[0].CompanyID)
		require.Equal(t, models.StepStatusTodo, got[0].PreviousStatus)
		require.Equal(t, models.StepStatusDone, got[0].Step.Status)
	})

	t.Run("concurrent updates keep every status", func(t *testing.T) {
		svc, st := setup(t)

		ids := []string{"setup_account", "process_payment", "data_integration", "refer_friend", "ai_agents"}
		errs := make(chan error, len(ids))
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.UpdateStepStatus(ctx, "c1", id, models.StepStatusDone)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		company, err := st.GetCompany(ctx, "c1")
		require.NoError(t, err)
		done := 0
		for _, s := range company.OnboardingSteps {
			if s.Status == models.StepStatusDone {
				done++
			}
		}
		require.Equal(t, len(ids), done)
	})
}

func TestReseedSteps(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	require.NoError(t, st.CreateCompany(ctx, models.NewCompany("c1", "Acme", testNow)))
	_, err := svc.CreateDefaultSteps(ctx, "c1")
	require.NoError(t, err)

	defs := []models.OnboardingStep{
		{ID: "kickoff", Name: "Kickoff", TodoLink: "/companies/{company_id}/kickoff"},
		{ID: "review", Name: "Review", Status: models.StepStatusInProgress},
	}

	steps, err := svc.ReseedSteps(ctx, "c1", defs)
	require.NoError(t, err)
	require.Equal(t, []string{"kickoff", "review"}, stepIDs(steps))
	require.Equal(t, "/companies/c1/kickoff", steps[0].TodoLink)
	require.Equal(t, models.StepStatusTodo, steps[0].Status)
	require.Equal(t, models.StepStatusInProgress, steps[1].Status)

	listed, err := st.ListSteps(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"kickoff", "review"}, stepIDs(listed))

	company, err := st.GetCompany(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, company.OnboardingSteps, 7, "array is not touched by reseed")

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := svc.ReseedSteps(ctx, "c1", []models.OnboardingStep{{ID: "a"}, {ID: "a"}})
		require.ErrorIs(t, err, ErrInvalidTemplate)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := svc.ReseedSteps(ctx, "c1", []models.OnboardingStep{{Name: "nameless"}})
		require.ErrorIs(t, err, ErrInvalidTemplate)
	})

	t.Run("missing company", func(t *testing.T) {
		_, err := svc.ReseedSteps(ctx, "nope", defs)
		require.ErrorIs(t, err, store.ErrCompanyNotFound)
	})
}
