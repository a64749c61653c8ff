package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/telemetry"
)

// stepRecord is the DynamoDB representation of a subcollection step.
// StepID is the storage key; the embedded payload id is ignored on read.
type stepRecord struct {
	CompanyID string `dynamodbav:"company_id"`
	StepID    string `dynamodbav:"step_id"`
	models.OnboardingStep
}

func (r *stepRecord) toModel() models.OnboardingStep {
	step := r.OnboardingStep
	step.ID = r.StepID
	return step
}

func newStepRecord(companyID string, step models.OnboardingStep) *stepRecord {
	return &stepRecord{CompanyID: companyID, StepID: step.ID, OnboardingStep: step}
}

// GetStep reads one subcollection document
func (s *Store) GetStep(ctx context.Context, companyID, stepID string) (*models.OnboardingStep, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Steps),
		Key: map[string]types.AttributeValue{
			"company_id": &types.AttributeValueMemberS{Value: companyID},
			"step_id":    &types.AttributeValueMemberS{Value: stepID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, wrapAWSError(err, "failed to get step")
	}

	if result.Item == nil {
		return nil, store.ErrStepNotFound
	}

	var record stepRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step: %w", err)
	}

	step := record.toModel()
	return &step, nil
}

// ListSteps queries the subcollection for a company, ordered by step id
func (s *Store) ListSteps(ctx context.Context, companyID string) ([]models.OnboardingStep, error) {
	records, err := s.queryStepRecords(ctx, companyID)
	if err != nil {
		return nil, err
	}

	steps := make([]models.OnboardingStep, 0, len(records))
	for i := range records {
		steps = append(steps, records[i].toModel())
	}

	return steps, nil
}

func (s *Store) queryStepRecords(ctx context.Context, companyID string) ([]stepRecord, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("company_id").Equal(expression.Value(companyID))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tables.Steps),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var records []stepRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapAWSError(err, "failed to query steps")
		}

		var pageRecords []stepRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageRecords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
		records = append(records, pageRecords...)
	}

	return records, nil
}

// PutSteps writes each step as a full document
func (s *Store) PutSteps(ctx context.Context, companyID string, steps []models.OnboardingStep) error {
	requests := make([]types.WriteRequest, 0, len(steps))
	for _, step := range steps {
		item, err := attributevalue.MarshalMap(newStepRecord(companyID, step))
		if err != nil {
			return fmt.Errorf("failed to marshal step: %w", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	return s.batchWrite(ctx, requests)
}

// DeleteSteps removes every subcollection document for the company
func (s *Store) DeleteSteps(ctx context.Context, companyID string) (int, error) {
	records, err := s.queryStepRecords(ctx, companyID)
	if err != nil {
		return 0, err
	}

	requests := make([]types.WriteRequest, 0, len(records))
	for _, r := range records {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
			Key: map[string]types.AttributeValue{
				"company_id": &types.AttributeValueMemberS{Value: companyID},
				"step_id":    &types.AttributeValueMemberS{Value: r.StepID},
			},
		}})
	}

	if err := s.batchWrite(ctx, requests); err != nil {
		return 0, err
	}

	log.Debug().Str("company_id", companyID).Int("count", len(records)).Msg("deleted onboarding steps")

	return len(records), nil
}

// SetStepArray overwrites the company's onboarding_steps attribute
func (s *Store) SetStepArray(ctx context.Context, companyID string, steps []models.OnboardingStep) error {
	if steps == nil {
		steps = []models.OnboardingStep{}
	}
	return s.setCompanyField(ctx, companyID, "onboarding_steps", steps)
}

// SaveStep writes the step document and the company's array in one transaction
func (s *Store) SaveStep(ctx context.Context, companyID string, step models.OnboardingStep, array []models.OnboardingStep) error {
	item, err := attributevalue.MarshalMap(newStepRecord(companyID, step))
	if err != nil {
		return fmt.Errorf("failed to marshal step: %w", err)
	}

	if array == nil {
		array = []models.OnboardingStep{}
	}

	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("onboarding_steps"), expression.Value(array))).
		WithCondition(expression.AttributeExists(expression.Name("company_id"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:                 aws.String(s.tables.Companies),
					Key:                       stringKey("company_id", companyID),
					UpdateExpression:          expr.Update(),
					ConditionExpression:       expr.Condition(),
					ExpressionAttributeNames:  expr.Names(),
					ExpressionAttributeValues: expr.Values(),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(s.tables.Steps),
					Item:      item,
				},
			},
		},
	})
	if err != nil {
		if cancelledAt(err, 0) {
			return store.ErrCompanyNotFound
		}
		return wrapAWSError(err, "failed to save step")
	}

	return nil
}

// batchWrite sends requests in chunks, resubmitting unprocessed items with a short delay.
func (s *Store) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += batchWriteMaxItems {
		end := min(start+batchWriteMaxItems, len(requests))

		pending := map[string][]types.WriteRequest{s.tables.Steps: requests[start:end]}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == batchWriteRetries {
				return fmt.Errorf("batch write left %d unprocessed items: %w", len(pending[s.tables.Steps]), store.ErrThrottled)
			}
			if attempt > 0 {
				telemetry.GetMetrics().DynamoDBBatchRetries.Add(ctx, 1)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(attempt*50) * time.Millisecond):
				}
			}

			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return wrapAWSError(err, "failed to batch write steps")
			}
			pending = out.UnprocessedItems
		}
	}

	return nil
}
