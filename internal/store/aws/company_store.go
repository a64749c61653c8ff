package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// CreateCompany creates a new company; member ids are written by the membership operations only
func (s *Store) CreateCompany(ctx context.Context, company *models.Company) error {
	clone := *company
	clone.UserIDs = nil
	if clone.OnboardingSteps == nil {
		clone.OnboardingSteps = []models.OnboardingStep{}
	}

	item, err := attributevalue.MarshalMap(&clone)
	if err != nil {
		return fmt.Errorf("failed to marshal company: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Companies),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(company_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return store.ErrCompanyExists
		}
		return wrapAWSError(err, "failed to create company")
	}

	log.Debug().
		Str("company_id", company.CompanyID).
		Msg("company created")

	return nil
}

// GetCompany retrieves a company by id
func (s *Store) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Companies),
		Key:            stringKey("company_id", companyID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, wrapAWSError(err, "failed to get company")
	}

	if result.Item == nil {
		return nil, store.ErrCompanyNotFound
	}

	var company models.Company
	if err := attributevalue.UnmarshalMap(result.Item, &company); err != nil {
		return nil, fmt.Errorf("failed to unmarshal company: %w", err)
	}

	return normalizeCompany(&company), nil
}

// ListCompanies scans every company
func (s *Store) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.tables.Companies),
	})

	var companies []*models.Company
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapAWSError(err, "failed to list companies")
		}

		for _, item := range page.Items {
			var company models.Company
			if err := attributevalue.UnmarshalMap(item, &company); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal company, skipping")
				continue
			}
			companies = append(companies, normalizeCompany(&company))
		}
	}

	return companies, nil
}

// UpdateBilling overwrites the billing sub-record
func (s *Store) UpdateBilling(ctx context.Context, companyID string, billing map[string]any) error {
	return s.setCompanyField(ctx, companyID, "billing", billing)
}

func (s *Store) setCompanyField(ctx context.Context, companyID, field string, value any) error {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name(field), expression.Value(value))).
		WithCondition(expression.AttributeExists(expression.Name("company_id"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tables.Companies),
		Key:                       stringKey("company_id", companyID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return store.ErrCompanyNotFound
		}
		return wrapAWSError(err, fmt.Sprintf("failed to update company %s", field))
	}

	return nil
}

func normalizeCompany(c *models.Company) *models.Company {
	if c.UserIDs == nil {
		c.UserIDs = []string{}
	}
	if c.OnboardingSteps == nil {
		c.OnboardingSteps = []models.OnboardingStep{}
	}
	return c
}
