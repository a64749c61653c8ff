package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsstore "github.com/wolfeidau/onboard/internal/store/aws"
)

// Config holds configuration for bootstrapping local DynamoDB infrastructure
type Config struct {
	DynamoClient *dynamodb.Client

	// Resource naming
	Environment string // e.g., "dev", "test" - used as prefix for table names

	// CleanResources controls whether to delete existing tables before creating
	// Set to false to preserve data across restarts (useful for development with live reload)
	CleanResources bool
}

// Resources holds identifiers for created infrastructure resources
type Resources struct {
	Tables awsstore.TableNames
}
