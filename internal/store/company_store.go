package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/onboard/internal/models"
)

// Sentinel errors for company store operations
var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrCompanyExists   = errors.New("company already exists")
)

// CompanyStore manages company documents.
type CompanyStore interface {
	// CreateCompany stores a new company document, including its denormalized
	// onboarding_steps array as given. Member ids are not written here; use
	// MembershipStore so both sides stay in agreement.
	// Returns ErrCompanyExists if a company with the same id already exists.
	CreateCompany(ctx context.Context, company *models.Company) error

	// GetCompany retrieves a company by id.
	// Returns ErrCompanyNotFound if the company doesn't exist.
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)

	// ListCompanies returns every company.
	ListCompanies(ctx context.Context) ([]*models.Company, error)

	// UpdateBilling overwrites the billing sub-record of a company.
	// Returns ErrCompanyNotFound if the company doesn't exist.
	UpdateBilling(ctx context.Context, companyID string, billing map[string]any) error
}
