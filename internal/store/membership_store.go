package store

import "context"

// MembershipStore maintains the many-to-many relationship between users and
// companies. Each call updates user.company_ids and company.user_ids together
// or not at all.
type MembershipStore interface {
	// AddMembership adds companyID to the user and userID to the company if not
	// already present.
	// Returns ErrUserNotFound or ErrCompanyNotFound if either side is missing.
	AddMembership(ctx context.Context, userID, companyID string) error

	// RemoveMembership removes both sides of the membership if present.
	// Returns ErrUserNotFound or ErrCompanyNotFound if either side is missing.
	RemoveMembership(ctx context.Context, userID, companyID string) error
}
