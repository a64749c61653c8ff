package store

import (
	"context"
	"errors"
	"time"

	"github.com/wolfeidau/onboard/internal/models"
)

// Sentinel errors for invitation store operations
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExists   = errors.New("invitation code already exists")
	ErrInvitationUsed     = errors.New("invitation has already been used")
)

// Redemption describes who redeemed an invitation and when.
type Redemption struct {
	Code   string
	UserID string
	Email  string
	At     time.Time
}

// InvitationStore manages invitation documents.
type InvitationStore interface {
	// CreateInvitation stores a new invitation keyed by its code.
	// Returns ErrInvitationExists if the code is already taken.
	CreateInvitation(ctx context.Context, inv *models.Invitation) error

	// GetInvitation retrieves an invitation by code.
	// Returns ErrInvitationNotFound if the code doesn't exist.
	GetInvitation(ctx context.Context, code string) (*models.Invitation, error)

	// RedeemInvitation atomically marks the invitation used, stamps the redeemer
	// and grants the redeemer membership of the invitation's company on both
	// sides, creating a minimal user record if none exists.
	// Returns ErrInvitationNotFound or ErrInvitationUsed; in both cases nothing
	// is written.
	RedeemInvitation(ctx context.Context, r Redemption) (*models.Invitation, error)
}
