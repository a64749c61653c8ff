package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/bootstrap"
	"github.com/wolfeidau/onboard/internal/logger"
	postgresstore "github.com/wolfeidau/onboard/internal/store/postgres"
)

type CreateTablesCmd struct {
	Clean bool `help:"delete existing tables first (deletes all data)" default:"false"`
}

func (c *CreateTablesCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(true)
	ctx = log.WithContext(ctx)

	if err := globals.Store.AWS.Validate(); err != nil {
		return fmt.Errorf("failed to validate aws flags: %w", err)
	}

	client, err := globals.Store.AWS.DynamoClient(ctx)
	if err != nil {
		return err
	}

	res, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
		DynamoClient:   client,
		Environment:    globals.Store.AWS.Environment,
		CleanResources: c.Clean,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("users_table", res.Tables.Users).
		Str("companies_table", res.Tables.Companies).
		Str("steps_table", res.Tables.Steps).
		Str("invitations_table", res.Tables.Invitations).
		Msg("Tables ready")
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(true)
	ctx = log.WithContext(ctx)

	pool, err := globals.Store.Postgres.Pool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgresstore.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	zerolog.Ctx(ctx).Info().Msg("Database migrations completed")
	return nil
}
