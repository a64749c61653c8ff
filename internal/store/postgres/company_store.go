package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

const companyColumns = `
	c.company_id, c.name, c.created_at, c.onboarding_steps,
	c.billing, c.team_members, c.data_sharing, c.output_library,
	COALESCE(
		(SELECT array_agg(m.user_id ORDER BY m.created_at, m.user_id)
		 FROM memberships m WHERE m.company_id = c.company_id),
		'{}'
	)`

func scanCompany(row pgx.Row) (*models.Company, error) {
	var c models.Company
	err := row.Scan(
		&c.CompanyID,
		&c.Name,
		&c.CreatedAt,
		&c.OnboardingSteps,
		&c.Billing,
		&c.TeamMembers,
		&c.DataSharing,
		&c.OutputLibrary,
		&c.UserIDs,
	)
	if err != nil {
		return nil, err
	}
	if c.OnboardingSteps == nil {
		c.OnboardingSteps = []models.OnboardingStep{}
	}
	return &c, nil
}

// CreateCompany inserts a company row. Member ids on the input are ignored.
func (s *Store) CreateCompany(ctx context.Context, company *models.Company) error {
	steps := company.OnboardingSteps
	if steps == nil {
		steps = []models.OnboardingStep{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO companies (
			company_id, name, created_at, onboarding_steps,
			billing, team_members, data_sharing, output_library
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		company.CompanyID,
		company.Name,
		company.CreatedAt,
		steps,
		company.Billing,
		company.TeamMembers,
		company.DataSharing,
		company.OutputLibrary,
	)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrCompanyExists) {
			return store.ErrCompanyExists
		}
		return fmt.Errorf("failed to create company: %w", mapped)
	}

	log.Debug().
		Str("company_id", company.CompanyID).
		Str("name", company.Name).
		Msg("Created company")

	return nil
}

// GetCompany retrieves a company by id.
func (s *Store) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies c WHERE c.company_id = $1`, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", mapPostgresError(err))
	}

	return c, nil
}

// ListCompanies returns every company ordered by id.
func (s *Store) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies c ORDER BY c.company_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}

	return companies, nil
}

// UpdateBilling overwrites the billing column.
func (s *Store) UpdateBilling(ctx context.Context, companyID string, billing map[string]any) error {
	tag, err := s.pool.Exec(ctx, `UPDATE companies SET billing = $2 WHERE company_id = $1`, companyID, billing)
	if err != nil {
		return fmt.Errorf("failed to update billing: %w", mapPostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		return store.ErrCompanyNotFound
	}

	return nil
}
