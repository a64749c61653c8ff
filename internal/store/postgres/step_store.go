package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// GetStep reads one step row; the row key wins over any id in the payload.
func (s *Store) GetStep(ctx context.Context, companyID, stepID string) (*models.OnboardingStep, error) {
	var step models.OnboardingStep
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM onboarding_steps WHERE company_id = $1 AND step_id = $2
	`, companyID, stepID).Scan(&step)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrStepNotFound
		}
		return nil, fmt.Errorf("failed to get step: %w", mapPostgresError(err))
	}

	step.ID = stepID
	return &step, nil
}

// ListSteps returns the company's step rows ordered by step id.
func (s *Store) ListSteps(ctx context.Context, companyID string) ([]models.OnboardingStep, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT step_id, payload FROM onboarding_steps WHERE company_id = $1 ORDER BY step_id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", mapPostgresError(err))
	}
	defer rows.Close()

	steps := []models.OnboardingStep{}
	for rows.Next() {
		var (
			id   string
			step models.OnboardingStep
		)
		if err := rows.Scan(&id, &step); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		step.ID = id
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

// PutSteps upserts each step row in one batch.
func (s *Store) PutSteps(ctx context.Context, companyID string, steps []models.OnboardingStep) error {
	if len(steps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, step := range steps {
		batch.Queue(upsertStepSQL, companyID, step.ID, step)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to put steps: %w", mapPostgresError(err))
	}

	return nil
}

const upsertStepSQL = `
	INSERT INTO onboarding_steps (company_id, step_id, payload) VALUES ($1, $2, $3)
	ON CONFLICT (company_id, step_id) DO UPDATE SET payload = EXCLUDED.payload
`

// DeleteSteps removes all step rows for the company.
func (s *Store) DeleteSteps(ctx context.Context, companyID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM onboarding_steps WHERE company_id = $1`, companyID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete steps: %w", mapPostgresError(err))
	}

	return int(tag.RowsAffected()), nil
}

// SetStepArray overwrites the company's onboarding_steps column.
func (s *Store) SetStepArray(ctx context.Context, companyID string, steps []models.OnboardingStep) error {
	return setStepArray(ctx, s.pool, companyID, steps)
}

// SaveStep upserts the step row and overwrites the array in one transaction.
func (s *Store) SaveStep(ctx context.Context, companyID string, step models.OnboardingStep, array []models.OnboardingStep) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := setStepArray(ctx, tx, companyID, array); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, upsertStepSQL, companyID, step.ID, step); err != nil {
			return fmt.Errorf("failed to save step: %w", mapPostgresError(err))
		}

		return nil
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func setStepArray(ctx context.Context, db execer, companyID string, steps []models.OnboardingStep) error {
	if steps == nil {
		steps = []models.OnboardingStep{}
	}

	tag, err := db.Exec(ctx, `UPDATE companies SET onboarding_steps = $2 WHERE company_id = $1`, companyID, steps)
	if err != nil {
		return fmt.Errorf("failed to set step array: %w", mapPostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		return store.ErrCompanyNotFound
	}

	return nil
}
