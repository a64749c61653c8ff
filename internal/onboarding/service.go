package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// Sentinel errors for onboarding operations
var (
	ErrInvalidStatus = errors.New("invalid step status")
	ErrInvalidName   = errors.New("company name is required")
)

// Service owns the onboarding checklist of every company, keeping the step
// subcollection and the company's denormalized array in agreement.
type Service struct {
	store     store.Store
	template  []models.OnboardingStep
	now       func() time.Time
	newID     func() (string, error)
	listeners []Listener
	locks     *tenantLocks
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for created_at and updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTemplate replaces the default step template for new companies.
func WithTemplate(defs []models.OnboardingStep) Option {
	return func(s *Service) { s.template = defs }
}

// WithIDGenerator overrides company and migrated step id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) { s.newID = newID }
}

// OnStepUpdated registers a listener for committed step updates.
func OnStepUpdated(l Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

// NewService creates an onboarding service backed by st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		template: DefaultTemplate(),
		now:      time.Now,
		newID:    newUUIDv7,
		locks:    newTenantLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CreateCompany creates a company with the default onboarding checklist and
// links every listed user that exists. Unknown user ids are skipped.
func (s *Service) CreateCompany(ctx context.Context, name string, userIDs []string) (*models.Company, error) {
	log := zerolog.Ctx(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	companyID, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate company id: %w", err)
	}

	company := models.NewCompany(companyID, name, s.now())
	if err := s.store.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	if _, err := s.CreateDefaultSteps(ctx, companyID); err != nil {
		return nil, err
	}

	for _, userID := range userIDs {
		err := s.store.AddMembership(ctx, userID, companyID)
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			log.Warn().Str("company_id", companyID).Str("user_id", userID).Msg("skipping unknown user")
		case err != nil:
			return nil, fmt.Errorf("failed to add member %s: %w", userID, err)
		}
	}

	log.Info().Str("company_id", companyID).Str("name", name).Msg("company created")

	return s.store.GetCompany(ctx, companyID)
}

// CreateDefaultSteps writes the template checklist for a company to both the
// subcollection and the array, in template order.
func (s *Service) CreateDefaultSteps(ctx context.Context, companyID string) ([]models.OnboardingStep, error) {
	unlock := s.locks.lock(companyID)
	defer unlock()

	steps := Instantiate(s.template, companyID, s.now())

	if err := s.store.PutSteps(ctx, companyID, steps); err != nil {
		return nil, fmt.Errorf("failed to write steps: %w", err)
	}
	if err := s.store.SetStepArray(ctx, companyID, steps); err != nil {
		return nil, fmt.Errorf("failed to write step array: %w", err)
	}

	return steps, nil
}

// ListSteps returns the company's steps keyed by step id, read from the
// subcollection. A company with no steps yields an empty map.
func (s *Service) ListSteps(ctx context.Context, companyID string) (map[string]models.OnboardingStep, error) {
	if _, err := s.store.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	steps, err := s.store.ListSteps(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}

	byID := make(map[string]models.OnboardingStep, len(steps))
	for _, step := range steps {
		byID[step.ID] = step
	}
	return byID, nil
}

// UpdateStepStatus sets a step's status and refreshes updated_at, then
// rebuilds the company's array from the subcollection. Both writes commit
// together. Existence is decided by the subcollection alone.
func (s *Service) UpdateStepStatus(ctx context.Context, companyID, stepID string, status models.StepStatus) (*models.OnboardingStep, error) {
	if _, ok := models.ParseStepStatus(string(status)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	unlock := s.locks.lock(companyID)
	defer unlock()

	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetStep(ctx, companyID, stepID)
	if err != nil {
		return nil, err
	}

	updated := *current
	previous := updated.Status
	updated.Status = status
	updated.UpdatedAt = s.now().UTC()

	steps, err := s.store.ListSteps(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	for i := range steps {
		if steps[i].ID == stepID {
			steps[i] = updated
		}
	}

	rebuilt := Rebuild(company.OnboardingSteps, steps)
	if err := s.store.SaveStep(ctx, companyID, updated, rebuilt.Steps); err != nil {
		return nil, fmt.Errorf("failed to save step: %w", err)
	}

	s.logRebuild(ctx, companyID, rebuilt)

	ev := StepUpdated{
		CompanyID:      companyID,
		Step:           updated,
		PreviousStatus: previous,
		Healed:         rebuilt.Healed,
		Dropped:        rebuilt.Dropped,
	}
	for _, l := range s.listeners {
		l(ctx, ev)
	}

	return &updated, nil
}

// ReseedSteps replaces the company's subcollection with defs. The array is
// left as it is; run Resync afterwards to bring it in line.
func (s *Service) ReseedSteps(ctx context.Context, companyID string, defs []models.OnboardingStep) ([]models.OnboardingStep, error) {
	if err := validateDefinitions(defs); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(companyID)
	defer unlock()

	if _, err := s.store.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	removed, err := s.store.DeleteSteps(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete steps: %w", err)
	}

	steps := Instantiate(defs, companyID, s.now())
	if err := s.store.PutSteps(ctx, companyID, steps); err != nil {
		return nil, fmt.Errorf("failed to write steps: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("company_id", companyID).
		Int("removed", removed).
		Int("created", len(steps)).
		Msg("onboarding steps reseeded")

	return steps, nil
}

func (s *Service) logRebuild(ctx context.Context, companyID string, r RebuildResult) {
	if len(r.Healed) == 0 && len(r.Dropped) == 0 {
		return
	}
	zerolog.Ctx(ctx).Warn().
		Str("company_id", companyID).
		Strs("healed", r.Healed).
		Strs("dropped", r.Dropped).
		Msg("onboarding array repaired from subcollection")
}
