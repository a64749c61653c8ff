package onboarding

import (
	"context"

	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StepUpdated is emitted after a step status change has been committed.
type StepUpdated struct {
	CompanyID      string
	Step           models.OnboardingStep
	PreviousStatus models.StepStatus
	// Healed lists step ids that were missing from the array and restored by the rebuild.
	Healed []string
	// Dropped lists array entries with no subcollection document, removed by the rebuild.
	Dropped []string
}

// Listener receives committed step updates. Listeners run synchronously after
// the write and cannot fail it.
type Listener func(ctx context.Context, ev StepUpdated)

// RecordMetrics counts committed updates and the array repairs they caused.
func RecordMetrics(ctx context.Context, ev StepUpdated) {
	m := telemetry.GetMetrics()
	m.StepUpdatesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(ev.Step.Status))))
	if n := len(ev.Healed) + len(ev.Dropped); n > 0 {
		m.ArrayRepairsTotal.Add(ctx, int64(n))
	}
}
