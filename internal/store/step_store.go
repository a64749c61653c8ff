package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/onboard/internal/models"
)

// Sentinel errors for onboarding step operations
var (
	ErrStepNotFound = errors.New("onboarding step not found")
)

// StepStore manages the two representations of a company's onboarding steps:
// the authoritative per-step subcollection and the denormalized array held on
// the company document.
type StepStore interface {
	// GetStep reads one step from the subcollection. The returned step id is the
	// storage key.
	// Returns ErrStepNotFound if no document exists under that key.
	GetStep(ctx context.Context, companyID, stepID string) (*models.OnboardingStep, error)

	// ListSteps reads every step in the subcollection, ids taken from storage keys.
	// Returns an empty slice when the company has no steps.
	ListSteps(ctx context.Context, companyID string) ([]models.OnboardingStep, error)

	// PutSteps writes each step as a full document keyed by its id.
	PutSteps(ctx context.Context, companyID string, steps []models.OnboardingStep) error

	// DeleteSteps removes every subcollection document for the company and
	// returns how many were removed. The array field is left untouched.
	DeleteSteps(ctx context.Context, companyID string) (int, error)

	// SetStepArray overwrites the company's denormalized onboarding_steps array.
	// Returns ErrCompanyNotFound if the company doesn't exist.
	SetStepArray(ctx context.Context, companyID string, steps []models.OnboardingStep) error

	// SaveStep overwrites one subcollection document and the company's array in
	// a single atomic commit.
	// Returns ErrCompanyNotFound if the company doesn't exist.
	SaveStep(ctx context.Context, companyID string, step models.OnboardingStep, array []models.OnboardingStep) error
}
