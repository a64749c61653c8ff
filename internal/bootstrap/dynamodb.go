package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
	awsstore "github.com/wolfeidau/onboard/internal/store/aws"
)

// tableSpec is the key schema of one table; all keys are strings.
type tableSpec struct {
	name     string
	hashKey  string
	rangeKey string
}

func tableSpecs(tables awsstore.TableNames) []tableSpec {
	return []tableSpec{
		{name: tables.Users, hashKey: "user_id"},
		{name: tables.Companies, hashKey: "company_id"},
		{name: tables.Steps, hashKey: "company_id", rangeKey: "step_id"},
		{name: tables.Invitations, hashKey: "code"},
	}
}

// CreateTables creates the users, companies, onboarding steps and invitations tables
// If cleanResources is true, deletes existing tables first to ensure clean state
// If cleanResources is false, reuses existing tables (preserves data)
func CreateTables(ctx context.Context, client *dynamodb.Client, tables awsstore.TableNames, cleanResources bool) error {
	for _, spec := range tableSpecs(tables) {
		if err := createTable(ctx, client, spec, cleanResources); err != nil {
			return fmt.Errorf("failed to create table %s: %w", spec.name, err)
		}
		log.Info().Str("table", spec.name).Msg("table ready")
	}

	return nil
}

func createTable(ctx context.Context, client *dynamodb.Client, spec tableSpec, cleanResources bool) error {
	if cleanResources {
		if err := deleteTableIfExists(ctx, client, spec.name); err != nil {
			return err
		}
	}

	keySchema := []types.KeySchemaElement{
		{AttributeName: aws.String(spec.hashKey), KeyType: types.KeyTypeHash},
	}
	attributes := []types.AttributeDefinition{
		{AttributeName: aws.String(spec.hashKey), AttributeType: types.ScalarAttributeTypeS},
	}
	if spec.rangeKey != "" {
		keySchema = append(keySchema, types.KeySchemaElement{AttributeName: aws.String(spec.rangeKey), KeyType: types.KeyTypeRange})
		attributes = append(attributes, types.AttributeDefinition{AttributeName: aws.String(spec.rangeKey), AttributeType: types.ScalarAttributeTypeS})
	}

	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(spec.name),
		KeySchema:            keySchema,
		AttributeDefinitions: attributes,
		BillingMode:          types.BillingModeProvisioned,
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
	})
	if err != nil {
		// If table already exists and we're not cleaning, that's OK
		var resourceInUse *types.ResourceInUseException
		if !cleanResources && errors.As(err, &resourceInUse) {
			return nil
		}
		return err
	}

	// Wait for table to be active
	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(spec.name),
	}, 30*time.Second)
}

// deleteTableIfExists attempts to delete a table if it exists
func deleteTableIfExists(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		var resourceNotFound *types.ResourceNotFoundException
		if errors.As(err, &resourceNotFound) {
			return nil
		}
		return err
	}

	waiter := dynamodb.NewTableNotExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, 30*time.Second)
}

// DeleteTables removes every table created by CreateTables
func DeleteTables(ctx context.Context, client *dynamodb.Client, tables awsstore.TableNames) error {
	for _, spec := range tableSpecs(tables) {
		if err := deleteTableIfExists(ctx, client, spec.name); err != nil {
			return fmt.Errorf("failed to delete table %s: %w", spec.name, err)
		}
	}

	return nil
}
