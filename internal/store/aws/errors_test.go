package aws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

func TestWrapAWSError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		throttled bool
	}{
		{name: "provisioned throughput", err: &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}, throttled: true},
		{name: "request limit", err: &types.RequestLimitExceeded{Message: aws.String("limit")}, throttled: true},
		{name: "throttling message", err: errors.New("api error ThrottlingException: Rate exceeded"), throttled: true},
		{name: "other error", err: errors.New("boom"), throttled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapAWSError(tt.err, "failed to get user")
			require.Error(t, err)
			require.Equal(t, tt.throttled, errors.Is(err, store.ErrThrottled))
			require.Contains(t, err.Error(), "failed to get user")
		})
	}

	require.NoError(t, wrapAWSError(nil, "noop"))
}

func TestCancelledAt(t *testing.T) {
	err := fmt.Errorf("operation error: %w", &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	})

	require.False(t, cancelledAt(err, 0))
	require.True(t, cancelledAt(err, 1))
	require.False(t, cancelledAt(err, 2))
	require.False(t, cancelledAt(errors.New("other"), 0))
}

func TestTableNamesFor(t *testing.T) {
	tables := TableNamesFor("dev")
	require.Equal(t, "dev_users", tables.Users)
	require.Equal(t, "dev_companies", tables.Companies)
	require.Equal(t, "dev_onboarding_steps", tables.Steps)
	require.Equal(t, "dev_invitations", tables.Invitations)
}

func TestStepRecord_KeyWinsOverPayloadID(t *testing.T) {
	record := stepRecord{
		CompanyID:      "company-1",
		StepID:         "setup_account",
		OnboardingStep: models.OnboardingStep{ID: "stale", Name: "Setup"},
	}

	step := record.toModel()
	require.Equal(t, "setup_account", step.ID)
	require.Equal(t, "Setup", step.Name)
}
