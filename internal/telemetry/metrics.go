package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/onboard"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Onboarding metrics
	StepUpdatesTotal   metric.Int64Counter
	ArrayRepairsTotal  metric.Int64Counter
	ResyncActionsTotal metric.Int64Counter

	// Invitation metrics
	InvitationsCreatedTotal  metric.Int64Counter
	InvitationsRedeemedTotal metric.Int64Counter

	// Email metrics
	EmailDispatchTotal    metric.Int64Counter
	EmailDispatchDuration metric.Float64Histogram

	// DynamoDB metrics
	DynamoDBThrottlesTotal metric.Int64Counter
	DynamoDBBatchRetries   metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.StepUpdatesTotal, _ = meter.Int64Counter(
		"onboard.steps.updates.total",
		metric.WithDescription("Total number of committed onboarding step status updates"),
		metric.WithUnit("{update}"),
	)

	m.ArrayRepairsTotal, _ = meter.Int64Counter(
		"onboard.steps.array_repairs.total",
		metric.WithDescription("Total number of step ids healed or dropped while rebuilding the denormalized array"),
		metric.WithUnit("{step}"),
	)

	m.ResyncActionsTotal, _ = meter.Int64Counter(
		"onboard.steps.resync.total",
		metric.WithDescription("Total number of company resyncs by action"),
		metric.WithUnit("{company}"),
	)

	m.InvitationsCreatedTotal, _ = meter.Int64Counter(
		"onboard.invitations.created.total",
		metric.WithDescription("Total number of invitations created"),
		metric.WithUnit("{invitation}"),
	)

	m.InvitationsRedeemedTotal, _ = meter.Int64Counter(
		"onboard.invitations.redeemed.total",
		metric.WithDescription("Total number of invitation redemption attempts by result"),
		metric.WithUnit("{redemption}"),
	)

	m.EmailDispatchTotal, _ = meter.Int64Counter(
		"onboard.email.dispatch.total",
		metric.WithDescription("Total number of email dispatches by outcome"),
		metric.WithUnit("{dispatch}"),
	)

	m.EmailDispatchDuration, _ = meter.Float64Histogram(
		"onboard.email.dispatch.duration",
		metric.WithDescription("Duration of email provider calls"),
		metric.WithUnit("ms"),
	)

	m.DynamoDBThrottlesTotal, _ = meter.Int64Counter(
		"onboard.dynamodb.throttles.total",
		metric.WithDescription("Total number of DynamoDB throttling events"),
		metric.WithUnit("{throttle}"),
	)

	m.DynamoDBBatchRetries, _ = meter.Int64Counter(
		"onboard.dynamodb.batch_retries.total",
		metric.WithDescription("Total number of DynamoDB batch write retries"),
		metric.WithUnit("{retry}"),
	)

	return m
}
