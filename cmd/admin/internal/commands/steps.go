package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/onboard/internal/onboarding"
	"github.com/wolfeidau/onboard/internal/store"
)

type ResyncCmd struct {
	CompanyID       string        `help:"only repair this company" default:""`
	MaxTries        uint          `help:"attempts per company when the store throttles" default:"5"`
	InitialInterval time.Duration `help:"first retry delay" default:"200ms"`
	MaxInterval     time.Duration `help:"longest retry delay" default:"5s"`
}

func (c *ResyncCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, st, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	results, err := c.resync(ctx, st)
	printResyncResults(results)
	return err
}

func (c *ResyncCmd) resync(ctx context.Context, st store.Store) ([]onboarding.ResyncResult, error) {
	svc := onboarding.NewService(st)

	if c.CompanyID != "" {
		res, err := svc.Resync(ctx, c.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("failed to resync %s: %w", c.CompanyID, err)
		}
		return []onboarding.ResyncResult{*res}, nil
	}

	return svc.ResyncAll(ctx, onboarding.ResyncConfig{
		MaxTries:        c.MaxTries,
		InitialInterval: c.InitialInterval,
		MaxInterval:     c.MaxInterval,
	})
}

func printResyncResults(results []onboarding.ResyncResult) {
	if len(results) == 0 {
		fmt.Println("No companies repaired.")
		return
	}

	fmt.Printf("%-36s %-10s %-6s %-8s %-8s\n", "COMPANY", "ACTION", "STEPS", "HEALED", "DROPPED")
	for _, res := range results {
		fmt.Printf("%-36s %-10s %-6d %-8d %-8d\n",
			res.CompanyID,
			res.Action,
			res.Steps,
			len(res.Healed),
			len(res.Dropped))
	}
}

type ReseedCmd struct {
	CompanyID string `help:"company to reseed" required:""`
	Template  string `help:"YAML step template, the built-in steps when empty" default:"" type:"path"`
	Resync    bool   `help:"rebuild the step array after reseeding" default:"true" negatable:""`
}

func (c *ReseedCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, st, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	steps, err := c.reseed(ctx, st)
	if err != nil {
		return err
	}

	fmt.Printf("Reseeded %d steps for %s\n", len(steps), c.CompanyID)
	return nil
}

func (c *ReseedCmd) reseed(ctx context.Context, st store.Store) ([]string, error) {
	defs := onboarding.DefaultTemplate()
	if c.Template != "" {
		loaded, err := onboarding.LoadTemplate(c.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to load step template: %w", err)
		}
		defs = loaded
	}

	svc := onboarding.NewService(st)

	steps, err := svc.ReseedSteps(ctx, c.CompanyID, defs)
	if err != nil {
		return nil, fmt.Errorf("failed to reseed %s: %w", c.CompanyID, err)
	}

	// the subcollection was replaced, bring the array in line with it
	if c.Resync {
		if _, err := svc.Resync(ctx, c.CompanyID); err != nil {
			return nil, fmt.Errorf("failed to resync %s: %w", c.CompanyID, err)
		}
	}

	ids := make([]string, 0, len(steps))
	for _, step := range steps {
		ids = append(ids, step.ID)
	}
	return ids, nil
}
