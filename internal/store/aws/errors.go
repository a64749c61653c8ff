package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/telemetry"
)

// wrapAWSError wraps an AWS error with a message, mapping throttling errors to store.ErrThrottled.
func wrapAWSError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if isThrottled(err) {
		telemetry.GetMetrics().DynamoDBThrottlesTotal.Add(context.Background(), 1)
		return fmt.Errorf("%s: %w: %v", msg, store.ErrThrottled, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func isThrottled(err error) bool {
	var provisionedErr *types.ProvisionedThroughputExceededException
	if errors.As(err, &provisionedErr) {
		return true
	}

	var limitErr *types.RequestLimitExceeded
	if errors.As(err, &limitErr) {
		return true
	}

	// AWS SDK v2 doesn't always use typed errors for throttling
	errMsg := err.Error()
	return strings.Contains(errMsg, "ThrottlingException") ||
		strings.Contains(errMsg, "TooManyRequestsException") ||
		strings.Contains(errMsg, "Throttling")
}

func isConditionFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

// cancelledAt reports whether a cancelled transaction failed its condition on item i.
func cancelledAt(err error, i int) bool {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return false
	}
	if i >= len(txErr.CancellationReasons) {
		return false
	}
	return aws.ToString(txErr.CancellationReasons[i].Code) == "ConditionalCheckFailed"
}
