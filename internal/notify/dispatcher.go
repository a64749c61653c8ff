package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OutcomeStatus summarises a dispatch for the caller of a step update.
type OutcomeStatus string

const (
	OutcomeSent     OutcomeStatus = "sent"
	OutcomePartial  OutcomeStatus = "partial"
	OutcomeRejected OutcomeStatus = "rejected"
	OutcomeFailed   OutcomeStatus = "failed"
	OutcomeDisabled OutcomeStatus = "disabled"
)

// Outcome is the result of a dispatch. It is reported alongside the
// committed change and never turns into an error.
type Outcome struct {
	Status  OutcomeStatus    `json:"status"`
	Reason  string           `json:"reason,omitempty"`
	Results []DeliveryResult `json:"results,omitempty"`
}

// Delivered reports whether at least one recipient was accepted.
func (o Outcome) Delivered() bool {
	return o.Status == OutcomeSent || o.Status == OutcomePartial
}

// Request is a notification to send on behalf of a caller.
type Request struct {
	TemplateName string
	Subject      string
	Recipients   []string
	MergeVars    map[string]any
}

// DispatcherConfig holds sender identity and defaults.
type DispatcherConfig struct {
	FromEmail       string
	FromName        string
	DefaultTemplate string
	DefaultSubject  string
}

// Dispatcher sends best-effort notifications. A nil sender disables email.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
}

// NewDispatcher creates a dispatcher. Pass a nil sender when no provider key is configured.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{sender: sender, cfg: cfg}
}

// Enabled reports whether a provider is configured.
func (d *Dispatcher) Enabled() bool {
	return d.sender != nil
}

// ListTemplates returns the provider's templates.
func (d *Dispatcher) ListTemplates(ctx context.Context) ([]Template, error) {
	if d.sender == nil {
		return []Template{}, nil
	}
	return d.sender.ListTemplates(ctx)
}

// Dispatch sends req and classifies the provider's answer.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Outcome {
	log := zerolog.Ctx(ctx)

	outcome := d.dispatch(ctx, req)

	telemetry.GetMetrics().EmailDispatchTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", string(outcome.Status))))

	evt := log.Info()
	if outcome.Status != OutcomeSent && outcome.Status != OutcomeDisabled {
		evt = log.Warn()
	}
	evt.Str("outcome", string(outcome.Status)).
		Str("reason", outcome.Reason).
		Int("recipients", len(req.Recipients)).
		Msg("email dispatch")

	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) Outcome {
	if d.sender == nil {
		return Outcome{Status: OutcomeDisabled, Reason: "email is not configured"}
	}

	to := make([]Recipient, 0, len(req.Recipients))
	for _, email := range req.Recipients {
		if email = strings.TrimSpace(email); email != "" {
			to = append(to, Recipient{Email: email, Type: "to"})
		}
	}
	if len(to) == 0 {
		return Outcome{Status: OutcomeFailed, Reason: "no recipients"}
	}

	template := req.TemplateName
	if template == "" {
		template = d.cfg.DefaultTemplate
	}
	if template == "" {
		return Outcome{Status: OutcomeFailed, Reason: "no template name"}
	}

	subject := req.Subject
	if subject == "" {
		subject = d.cfg.DefaultSubject
	}

	start := time.Now()
	results, err := d.sender.SendTemplate(ctx, TemplateMessage{
		TemplateName: template,
		Subject:      subject,
		FromEmail:    d.cfg.FromEmail,
		FromName:     d.cfg.FromName,
		To:           to,
		MergeVars:    mergeVars(req.MergeVars),
	})
	telemetry.GetMetrics().EmailDispatchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return Outcome{Status: OutcomeFailed, Reason: failureReason(err)}
	}

	return Classify(results)
}

// RejectDomainMismatch is the provider's reject reason for recipients on a
// domain the sending account has not verified.
const RejectDomainMismatch = "recipient-domain-mismatch"

// Classify maps per-recipient results to an outcome: every recipient
// accepted is sent, none accepted is rejected, anything between is partial.
// When every rejection is a domain mismatch the reason lists the domains.
func Classify(results []DeliveryResult) Outcome {
	if len(results) == 0 {
		return Outcome{Status: OutcomeFailed, Reason: "provider returned no results", Results: results}
	}

	var accepted int
	var reasons, domains []string
	mismatchOnly := true
	for _, r := range results {
		if r.Accepted() {
			accepted++
			continue
		}
		reason := r.RejectReason
		if reason == "" {
			reason = r.Status
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", r.Email, reason))

		_, domain, ok := strings.Cut(r.Email, "@")
		if reason != RejectDomainMismatch || !ok {
			mismatchOnly = false
			continue
		}
		domains = append(domains, strings.ToLower(domain))
	}

	if accepted == len(results) {
		return Outcome{Status: OutcomeSent, Results: results}
	}

	reason := strings.Join(reasons, "; ")
	if mismatchOnly {
		slices.Sort(domains)
		reason = "unverified recipient domains: " + strings.Join(slices.Compact(domains), ", ")
	}

	if accepted == 0 {
		return Outcome{Status: OutcomeRejected, Reason: reason, Results: results}
	}
	return Outcome{Status: OutcomePartial, Reason: reason, Results: results}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "email provider timed out"
	case errors.Is(err, ErrInvalidTemplate):
		return "template not found"
	case errors.Is(err, ErrInvalidKey):
		return "email provider key rejected"
	}
	return "email provider error"
}

func mergeVars(vars map[string]any) []MergeVar {
	if len(vars) == 0 {
		return nil
	}
	out := make([]MergeVar, 0, len(vars))
	for name, content := range vars {
		out = append(out, MergeVar{Name: name, Content: content})
	}
	slices.SortFunc(out, func(a, b MergeVar) int { return strings.Compare(a.Name, b.Name) })
	return out
}
