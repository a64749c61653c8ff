package onboarding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RebuildResult is a freshly built array together with the ids that differed
// from the previous array.
type RebuildResult struct {
	Steps   []models.OnboardingStep
	Healed  []string
	Dropped []string
}

// Rebuild derives the denormalized array from the subcollection. Ids keep the
// position they had in the previous array; ids only in the subcollection are
// appended sorted by id. Array entries without a subcollection document are
// dropped.
func Rebuild(previous, subcollection []models.OnboardingStep) RebuildResult {
	byID := make(map[string]models.OnboardingStep, len(subcollection))
	for _, step := range subcollection {
		byID[step.ID] = step
	}

	res := RebuildResult{Steps: make([]models.OnboardingStep, 0, len(subcollection))}
	placed := make(map[string]struct{}, len(subcollection))

	for _, old := range previous {
		if _, done := placed[old.ID]; done {
			continue
		}
		step, ok := byID[old.ID]
		if !ok {
			res.Dropped = append(res.Dropped, old.ID)
			continue
		}
		res.Steps = append(res.Steps, step)
		placed[old.ID] = struct{}{}
	}

	var rest []models.OnboardingStep
	for _, step := range subcollection {
		if _, done := placed[step.ID]; !done {
			rest = append(rest, step)
		}
	}
	slices.SortFunc(rest, func(a, b models.OnboardingStep) int {
		return strings.Compare(a.ID, b.ID)
	})
	for _, step := range rest {
		res.Steps = append(res.Steps, step)
		res.Healed = append(res.Healed, step.ID)
	}

	return res
}

// ResyncAction describes what Resync did to a company.
type ResyncAction string

const (
	ResyncRebuilt  ResyncAction = "rebuilt"
	ResyncMigrated ResyncAction = "migrated"
	ResyncNoop     ResyncAction = "noop"
)

// ResyncResult reports the outcome of a resync for one company.
type ResyncResult struct {
	CompanyID string       `json:"company_id"`
	Action    ResyncAction `json:"action"`
	Steps     int          `json:"steps"`
	Healed    []string     `json:"healed,omitempty"`
	Dropped   []string     `json:"dropped,omitempty"`
}

// Resync repairs one company. A non-empty subcollection is authoritative and
// the array is rebuilt from it. Otherwise a non-empty array is migrated into
// the subcollection, keeping embedded ids and generating ids for entries that
// have none, and the array is rewritten with those ids.
func (s *Service) Resync(ctx context.Context, companyID string) (*ResyncResult, error) {
	unlock := s.locks.lock(companyID)
	defer unlock()

	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	steps, err := s.store.ListSteps(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}

	res := &ResyncResult{CompanyID: companyID, Action: ResyncNoop}

	switch {
	case len(steps) > 0:
		rebuilt := Rebuild(company.OnboardingSteps, steps)
		if err := s.store.SetStepArray(ctx, companyID, rebuilt.Steps); err != nil {
			return nil, fmt.Errorf("failed to write step array: %w", err)
		}
		res.Action = ResyncRebuilt
		res.Steps = len(rebuilt.Steps)
		res.Healed = rebuilt.Healed
		res.Dropped = rebuilt.Dropped

	case len(company.OnboardingSteps) > 0:
		migrated, err := s.migrate(ctx, companyID, company.OnboardingSteps)
		if err != nil {
			return nil, err
		}
		res.Action = ResyncMigrated
		res.Steps = len(migrated)
	}

	telemetry.GetMetrics().ResyncActionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("action", string(res.Action))))

	zerolog.Ctx(ctx).Info().
		Str("company_id", companyID).
		Str("action", string(res.Action)).
		Int("steps", res.Steps).
		Strs("healed", res.Healed).
		Strs("dropped", res.Dropped).
		Msg("onboarding resync")

	return res, nil
}

func (s *Service) migrate(ctx context.Context, companyID string, array []models.OnboardingStep) ([]models.OnboardingStep, error) {
	seen := make(map[string]struct{}, len(array))
	steps := make([]models.OnboardingStep, 0, len(array))

	for _, entry := range array {
		step := entry
		if step.ID == "" {
			id, err := s.newID()
			if err != nil {
				return nil, fmt.Errorf("failed to generate step id: %w", err)
			}
			step.ID = id
		}
		if _, dup := seen[step.ID]; dup {
			zerolog.Ctx(ctx).Warn().Str("company_id", companyID).Str("step_id", step.ID).Msg("skipping duplicate array entry")
			continue
		}
		seen[step.ID] = struct{}{}

		if step.Status == "" {
			step.Status = models.StepStatusTodo
		}
		if step.UpdatedAt.IsZero() {
			step.UpdatedAt = s.now().UTC()
		}
		steps = append(steps, step)
	}

	if err := s.store.PutSteps(ctx, companyID, steps); err != nil {
		return nil, fmt.Errorf("failed to write steps: %w", err)
	}
	if err := s.store.SetStepArray(ctx, companyID, steps); err != nil {
		return nil, fmt.Errorf("failed to write step array: %w", err)
	}

	return steps, nil
}

// ResyncConfig bounds the retries ResyncAll makes per company.
type ResyncConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultResyncConfig retries a throttled company five times, starting at 200ms.
func DefaultResyncConfig() ResyncConfig {
	return ResyncConfig{
		MaxTries:        5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// ResyncAll resyncs every company. Throttled stores are retried with
// exponential backoff; other failures are collected and the sweep continues.
func (s *Service) ResyncAll(ctx context.Context, cfg ResyncConfig) ([]ResyncResult, error) {
	log := zerolog.Ctx(ctx)

	companies, err := retryThrottled(ctx, cfg, func() ([]*models.Company, error) {
		return s.store.ListCompanies(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	results := make([]ResyncResult, 0, len(companies))
	var errs []error

	for _, company := range companies {
		res, err := retryThrottled(ctx, cfg, func() (*ResyncResult, error) {
			return s.Resync(ctx, company.CompanyID)
		})
		if err != nil {
			log.Error().Err(err).Str("company_id", company.CompanyID).Msg("resync failed")
			errs = append(errs, fmt.Errorf("company %s: %w", company.CompanyID, err))
			continue
		}
		results = append(results, *res)
	}

	return results, errors.Join(errs...)
}

func retryThrottled[T any](ctx context.Context, cfg ResyncConfig, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, store.ErrThrottled) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			zerolog.Ctx(ctx).Warn().Err(err).Dur("retry_in", next).Msg("store throttled, retrying")
		}),
	)
}
