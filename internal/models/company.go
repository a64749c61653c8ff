package models

import (
	"slices"
	"time"
)

// Company represents a tenant. It owns its onboarding steps and carries a
// denormalized copy of them in OnboardingSteps for cheap bulk reads.
type Company struct {
	CompanyID       string           `dynamodbav:"company_id" json:"id"`
	Name            string           `dynamodbav:"name" json:"name"`
	CreatedAt       time.Time        `dynamodbav:"created_at" json:"created_at"`
	UserIDs         []string         `dynamodbav:"user_ids,stringset,omitempty" json:"user_ids"`
	OnboardingSteps []OnboardingStep `dynamodbav:"onboarding_steps" json:"onboarding_steps"`

	// Opaque sub-records owned by the web client.
	Billing       map[string]any `dynamodbav:"billing,omitempty" json:"billing,omitempty"`
	TeamMembers   []any          `dynamodbav:"team_members,omitempty" json:"team_members,omitempty"`
	DataSharing   map[string]any `dynamodbav:"data_sharing,omitempty" json:"data_sharing,omitempty"`
	OutputLibrary map[string]any `dynamodbav:"output_library,omitempty" json:"output_library,omitempty"`
}

// HasUser returns true if the user id is in the company's member set.
func (c *Company) HasUser(userID string) bool {
	return slices.Contains(c.UserIDs, userID)
}

// NewCompany returns a company with the default opaque sub-records populated.
func NewCompany(companyID, name string, now time.Time) *Company {
	return &Company{
		CompanyID:       companyID,
		Name:            name,
		CreatedAt:       now.UTC(),
		UserIDs:         []string{},
		OnboardingSteps: []OnboardingStep{},
		Billing:         DefaultBilling(),
		TeamMembers:     []any{},
		DataSharing: map[string]any{
			"is_connected":       false,
			"connection_type":    nil,
			"connected_at":       nil,
			"connection_details": map[string]any{},
		},
		OutputLibrary: map[string]any{
			"files":            []any{},
			"total_files":      0,
			"total_size_bytes": 0,
		},
	}
}

// DefaultBilling is the billing record served when none has been saved.
func DefaultBilling() map[string]any {
	return map[string]any{
		"form_of_payment":     nil,
		"payment_transferred": 0,
		"payment_due":         0,
		"payment_remaining":   0,
		"payment_history":     []any{},
	}
}
