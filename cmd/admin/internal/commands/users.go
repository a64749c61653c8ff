package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/onboard/internal/access"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// GrantAdminCmd promotes an existing user. The user must have signed in once
// so their record exists.
type GrantAdminCmd struct {
	Email string `help:"email address of the user" required:""`
}

func (c *GrantAdminCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, st, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	user, changed, err := c.grant(ctx, st)
	if err != nil {
		return err
	}

	if !changed {
		fmt.Printf("%s (%s) is already an admin\n", user.Email, user.UserID)
		return nil
	}
	fmt.Printf("%s (%s) is now an admin\n", user.Email, user.UserID)
	return nil
}

func (c *GrantAdminCmd) grant(ctx context.Context, st store.UserStore) (*models.User, bool, error) {
	user, changed, err := access.NewChecker(st).GrantAdmin(ctx, c.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, false, fmt.Errorf("%w: they must sign in once before being granted admin", err)
	}
	return user, changed, err
}
