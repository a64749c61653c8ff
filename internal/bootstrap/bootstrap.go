package bootstrap

import (
	"context"
	"fmt"

	awsstore "github.com/wolfeidau/onboard/internal/store/aws"
)

// Bootstrap creates the DynamoDB tables used by the store.
// If CleanResources is true, deletes existing tables first to ensure clean state
// If CleanResources is false, creates tables only if they don't exist (preserves data)
func Bootstrap(ctx context.Context, cfg Config) (*Resources, error) {
	if cfg.DynamoClient == nil {
		return nil, fmt.Errorf("DynamoClient is required")
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev" // Default environment
	}

	tables := awsstore.TableNamesFor(cfg.Environment)
	if err := CreateTables(ctx, cfg.DynamoClient, tables, cfg.CleanResources); err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB tables: %w", err)
	}

	return &Resources{Tables: tables}, nil
}

// Cleanup deletes all tables created by Bootstrap
func Cleanup(ctx context.Context, cfg Config, res *Resources) error {
	if err := DeleteTables(ctx, cfg.DynamoClient, res.Tables); err != nil {
		return fmt.Errorf("failed to delete tables: %w", err)
	}

	return nil
}
