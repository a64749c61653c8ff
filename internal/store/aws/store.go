package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/wolfeidau/onboard/internal/store"
)

// DynamoDB service limits
const (
	batchWriteMaxItems = 25 // BatchWriteItem maximum requests per call
	batchWriteRetries  = 5  // attempts to flush UnprocessedItems before giving up
)

// TableNames holds the DynamoDB tables used by the store.
type TableNames struct {
	Users       string
	Companies   string
	Steps       string
	Invitations string
}

// TableNamesFor derives table names from an environment prefix, e.g. "dev" -> "dev_users".
func TableNamesFor(env string) TableNames {
	return TableNames{
		Users:       fmt.Sprintf("%s_users", env),
		Companies:   fmt.Sprintf("%s_companies", env),
		Steps:       fmt.Sprintf("%s_onboarding_steps", env),
		Invitations: fmt.Sprintf("%s_invitations", env),
	}
}

// Store is a DynamoDB implementation of store.Store.
//
// Tables:
//   - users: pk user_id
//   - companies: pk company_id
//   - onboarding steps: pk company_id, sk step_id
//   - invitations: pk code
//
// Multi-document writes use TransactWriteItems.
type Store struct {
	client *dynamodb.Client
	tables TableNames
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new DynamoDB store
func NewStore(client *dynamodb.Client, tables TableNames) *Store {
	return &Store{
		client: client,
		tables: tables,
	}
}

// Ping checks the users table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tables.Users),
	})
	return wrapAWSError(err, "failed to describe users table")
}

func stringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// stringSet marshals as a DynamoDB string set for ADD and DELETE updates.
type stringSet []string

func (ss stringSet) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberSS{Value: ss}, nil
}
