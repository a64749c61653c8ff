package notify

import (
	"context"
	"errors"
)

// Sentinel errors for email provider calls
var (
	ErrTimeout         = errors.New("email provider timed out")
	ErrInvalidTemplate = errors.New("invalid email template")
	ErrInvalidKey      = errors.New("invalid email provider key")
	ErrUpstream        = errors.New("email provider error")
)

// Per-recipient delivery states reported by the provider.
const (
	DeliverySent      = "sent"
	DeliveryQueued    = "queued"
	DeliveryScheduled = "scheduled"
	DeliveryRejected  = "rejected"
	DeliveryInvalid   = "invalid"
)

// Recipient is one addressee of a message.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
}

// MergeVar is a template variable substituted by the provider.
type MergeVar struct {
	Name    string `json:"name"`
	Content any    `json:"content"`
}

// TemplateMessage is a templated email to one or more recipients.
type TemplateMessage struct {
	TemplateName string
	Subject      string
	FromEmail    string
	FromName     string
	To           []Recipient
	MergeVars    []MergeVar
}

// DeliveryResult is the provider's verdict for one recipient.
type DeliveryResult struct {
	Email        string `json:"email"`
	Status       string `json:"status"`
	RejectReason string `json:"reject_reason,omitempty"`
	ID           string `json:"_id,omitempty"`
}

// Accepted reports whether the provider took the message for delivery.
func (r DeliveryResult) Accepted() bool {
	switch r.Status {
	case DeliverySent, DeliveryQueued, DeliveryScheduled:
		return true
	}
	return false
}

// Template describes a template stored with the provider.
type Template struct {
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	Subject   string   `json:"subject,omitempty"`
	FromEmail string   `json:"from_email,omitempty"`
	FromName  string   `json:"from_name,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// Sender delivers templated email through an external provider.
type Sender interface {
	SendTemplate(ctx context.Context, msg TemplateMessage) ([]DeliveryResult, error)
	ListTemplates(ctx context.Context) ([]Template, error)
}
