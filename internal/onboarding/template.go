package onboarding

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wolfeidau/onboard/internal/models"
	"gopkg.in/yaml.v3"
)

// CompanyIDPlaceholder is replaced with the company id in step links.
const CompanyIDPlaceholder = "{company_id}"

// ErrInvalidTemplate is returned when step definitions are malformed.
var ErrInvalidTemplate = errors.New("invalid step template")

// DefaultTemplate is the checklist every new company starts with.
func DefaultTemplate() []models.OnboardingStep {
	return []models.OnboardingStep{
		{
			ID:          "setup_account",
			Name:        "Account Setup",
			Description: "Complete initial account setup and configuration",
		},
		{
			ID:          "process_payment",
			Name:        "Billing Setup",
			Description: "Configure billing and payment settings",
			TodoLink:    "/billing",
			ButtonText:  "Billing",
		},
		{
			ID:          "data_integration",
			Name:        "Data Integration",
			Description: "Connect and integrate your company data",
			TodoLink:    "/companies/" + CompanyIDPlaceholder + "/data-sharing",
			ButtonText:  "Data Integration",
		},
		{
			ID:          "refer_friend",
			Name:        "Referrals",
			Description: "Share the platform with your network",
			TodoLink:    "/referrals",
			ButtonText:  "Referrals",
		},
		{
			ID:          "ai_agents",
			Name:        "AI Agents",
			Description: "Configure and deploy your AI agents",
			TodoLink:    "/companies/" + CompanyIDPlaceholder + "/ai-agents",
			ButtonText:  "AI Agents",
		},
		{
			ID:          "training_session",
			Name:        "Training Session",
			Description: "Schedule a training session with our team",
		},
		{
			ID:          "performance_review",
			Name:        "Performance Review",
			Description: "Review AI agent performance and metrics",
		},
	}
}

// LoadTemplate reads step definitions from a YAML file containing a list of steps:
//
//	- id: setup_account
//	  name: Account Setup
//	  description: Complete initial account setup
//	  todoLink: /companies/{company_id}/setup
func LoadTemplate(path string) ([]models.OnboardingStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	var defs []models.OnboardingStep
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	if err := validateDefinitions(defs); err != nil {
		return nil, err
	}

	return defs, nil
}

// Instantiate copies the definitions for a company, stamping updated_at and
// expanding the company id placeholder. Steps without a status start in todo.
func Instantiate(defs []models.OnboardingStep, companyID string, now time.Time) []models.OnboardingStep {
	steps := make([]models.OnboardingStep, 0, len(defs))
	for _, def := range defs {
		step := def
		if step.Status == "" {
			step.Status = models.StepStatusTodo
		}
		step.UpdatedAt = now.UTC()
		step.TodoLink = strings.ReplaceAll(step.TodoLink, CompanyIDPlaceholder, companyID)
		steps = append(steps, step)
	}
	return steps
}

func validateDefinitions(defs []models.OnboardingStep) error {
	seen := make(map[string]struct{}, len(defs))
	for i, def := range defs {
		if def.ID == "" {
			return fmt.Errorf("%w: step %d has no id", ErrInvalidTemplate, i)
		}
		if _, dup := seen[def.ID]; dup {
			return fmt.Errorf("%w: duplicate step id %q", ErrInvalidTemplate, def.ID)
		}
		seen[def.ID] = struct{}{}

		if def.Status != "" {
			if _, ok := models.ParseStepStatus(string(def.Status)); !ok {
				return fmt.Errorf("%w: step %q has unknown status %q", ErrInvalidTemplate, def.ID, def.Status)
			}
		}
	}
	return nil
}
