package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/onboard/internal/invitation"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

type InviteCmd struct {
	CompanyID string        `help:"company the invitation joins" required:""`
	Code      string        `help:"invitation code, generated when empty" default:""`
	Expiry    string        `help:"expiry date (RFC3339 or YYYY-MM-DD), overrides --valid-for" default:""`
	ValidFor  time.Duration `help:"how long the invitation is valid" default:"168h"`
	CreatedBy string        `help:"user id recorded as the creator" default:"admin-cli"`
}

func (c *InviteCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, st, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	inv, err := c.invite(ctx, st, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Invitation %s for %s expires %s\n", inv.Code, inv.CompanyName, inv.ExpiryDate.Format(time.RFC3339))
	return nil
}

func (c *InviteCmd) invite(ctx context.Context, st store.Store, now time.Time) (*models.Invitation, error) {
	company, err := st.GetCompany(ctx, c.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company %s: %w", c.CompanyID, err)
	}

	expiry := c.Expiry
	if expiry == "" {
		expiry = now.Add(c.ValidFor).UTC().Format(time.RFC3339)
	}

	return invitation.NewLedger(st).Create(ctx, invitation.NewInvitation{
		Code:        c.Code,
		CompanyID:   company.CompanyID,
		CompanyName: company.Name,
		ExpiryDate:  expiry,
		CreatedBy:   c.CreatedBy,
	})
}
