package models

import "time"

// StepStatus is the progress state of an onboarding step.
type StepStatus string

const (
	StepStatusTodo       StepStatus = "todo"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusDone       StepStatus = "done"
)

// ParseStepStatus converts s into a StepStatus, reporting false for unknown values.
func ParseStepStatus(s string) (StepStatus, bool) {
	switch st := StepStatus(s); st {
	case StepStatusTodo, StepStatusInProgress, StepStatusDone:
		return st, true
	}
	return "", false
}

// OnboardingStep is one entry of a company's onboarding checklist.
//
// In the subcollection the step id is the storage key; any id carried in the
// payload is ignored on read.
type OnboardingStep struct {
	ID          string     `dynamodbav:"id" json:"id" yaml:"id"`
	Name        string     `dynamodbav:"name" json:"name" yaml:"name"`
	Description string     `dynamodbav:"description" json:"description" yaml:"description"`
	Status      StepStatus `dynamodbav:"status" json:"status" yaml:"status"`
	UpdatedAt   time.Time  `dynamodbav:"updated_at" json:"updated_at" yaml:"-"`
	TodoLink    string     `dynamodbav:"todoLink,omitempty" json:"todoLink,omitempty" yaml:"todoLink,omitempty"`
	ButtonText  string     `dynamodbav:"buttonText,omitempty" json:"buttonText,omitempty" yaml:"buttonText,omitempty"`
}
