package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/bootstrap"
	"github.com/wolfeidau/onboard/internal/store"
	awsstore "github.com/wolfeidau/onboard/internal/store/aws"
	memorystore "github.com/wolfeidau/onboard/internal/store/memory"
	postgresstore "github.com/wolfeidau/onboard/internal/store/postgres"
)

// Store types accepted by --store-type.
const (
	StoreMemory   = "memory"
	StoreAWS      = "aws"
	StorePostgres = "postgres"
)

// DynamoDB Local endpoint used in development mode.
const developmentDynamoDBEndpoint = "http://localhost:4101"

// Flags select and configure the document store. They are shared by the
// server and the admin CLI.
type Flags struct {
	StoreType string        `help:"store type (memory, aws, or postgres)" default:"memory" env:"ONBOARD_STORE_TYPE" enum:"memory,aws,postgres"`
	AWS       AWSFlags      `embed:"" prefix:"aws-"`
	Postgres  PostgresFlags `embed:"" prefix:"postgres-"`
}

type AWSFlags struct {
	Environment string `help:"table name prefix, e.g. dev gives dev_users" default:"dev" env:"ONBOARD_AWS_ENVIRONMENT"`
	Region      string `help:"AWS region" default:"" env:"AWS_REGION"`

	// Endpoint override for local development
	DynamoDBEndpointURL string `help:"DynamoDB endpoint URL override (for DynamoDB Local)" default:"" env:"ONBOARD_AWS_DYNAMODB_ENDPOINT_URL"`
}

func (s *AWSFlags) Validate() error {
	if s.Environment == "" {
		return errors.New("table environment prefix is required (--aws-environment or ONBOARD_AWS_ENVIRONMENT)")
	}
	return nil
}

type PostgresFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"ONBOARD_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

// Tables returns the DynamoDB table names for the configured environment.
func (s *AWSFlags) Tables() awsstore.TableNames {
	return awsstore.TableNamesFor(s.Environment)
}

// DynamoClient creates a DynamoDB client honouring the endpoint override.
func (s *AWSFlags) DynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*dynamodb.Options)
	if s.DynamoDBEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(s.DynamoDBEndpointURL)
		})
	}

	return dynamodb.NewFromConfig(awsConfig, clientOpts...), nil
}

// Pool opens a connection pool with the configured limits.
func (s *PostgresFlags) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate postgres flags: %w", err)
	}

	pool, err := postgresstore.NewPool(ctx, postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// Open returns the selected store and a function releasing its resources.
func (f *Flags) Open(ctx context.Context) (store.Store, func(), error) {
	log := zerolog.Ctx(ctx)

	switch f.StoreType {
	case StoreAWS:
		if err := f.AWS.Validate(); err != nil {
			return nil, nil, fmt.Errorf("failed to validate aws flags: %w", err)
		}
		client, err := f.AWS.DynamoClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		tables := f.AWS.Tables()
		log.Info().Str("users_table", tables.Users).Str("companies_table", tables.Companies).Msg("Using DynamoDB store")
		return awsstore.NewStore(client, tables), func() {}, nil

	case StorePostgres:
		pool, err := f.Postgres.Pool(ctx)
		if err != nil {
			return nil, nil, err
		}
		if f.Postgres.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}
		log.Info().Msg("Using PostgreSQL store")
		return postgresstore.NewStore(pool), pool.Close, nil

	case StoreMemory, "":
		log.Info().Msg("Using in-memory store")
		return memorystore.NewStore(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store type %q", f.StoreType)
}

// SetupDevelopment creates the tables in DynamoDB Local and points the AWS
// flags at it. Existing data is kept unless clean is set.
func (f *Flags) SetupDevelopment(ctx context.Context, clean bool) error {
	localConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
	)
	if err != nil {
		return fmt.Errorf("failed to create local AWS config: %w", err)
	}

	dynamoClient := dynamodb.NewFromConfig(localConfig, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(developmentDynamoDBEndpoint)
	})

	resources, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
		DynamoClient:   dynamoClient,
		Environment:    "dev",
		CleanResources: clean,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap development infrastructure: %w", err)
	}

	f.StoreType = StoreAWS
	f.AWS.Environment = "dev"
	f.AWS.Region = "us-east-1"
	f.AWS.DynamoDBEndpointURL = developmentDynamoDBEndpoint

	zerolog.Ctx(ctx).Info().
		Str("users_table", resources.Tables.Users).
		Str("companies_table", resources.Tables.Companies).
		Str("steps_table", resources.Tables.Steps).
		Str("invitations_table", resources.Tables.Invitations).
		Msg("Development infrastructure ready")

	return nil
}
