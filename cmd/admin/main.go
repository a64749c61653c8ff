package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/onboard/cmd/admin/internal/commands"
	"github.com/wolfeidau/onboard/internal/backend"
)

var (
	version = "dev"
	cli     struct {
		Resync       commands.ResyncCmd       `cmd:"" help:"Repair the denormalized step arrays from the step documents"`
		Reseed       commands.ReseedCmd       `cmd:"" help:"Replace a company's step documents from a template"`
		GrantAdmin   commands.GrantAdminCmd   `cmd:"" help:"Grant the admin role to a user"`
		Invite       commands.InviteCmd       `cmd:"" help:"Create an invitation code for a company"`
		CreateTables commands.CreateTablesCmd `cmd:"" help:"Create the DynamoDB tables"`
		Migrate      commands.MigrateCmd      `cmd:"" help:"Run the PostgreSQL migrations"`
		Debug        bool                     `help:"Enable debug mode."`
		Store        backend.Flags            `embed:""`
		Version      kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Store: cli.Store})
	cmd.FatalIfErrorf(err)
}
