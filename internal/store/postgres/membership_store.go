package postgres

import (
	"context"
	"fmt"

	"github.com/wolfeidau/onboard/internal/store"
)

// AddMembership inserts the membership row if absent.
func (s *Store) AddMembership(ctx context.Context, userID, companyID string) error {
	return addMembership(ctx, s.pool, userID, companyID)
}

func addMembership(ctx context.Context, db execer, userID, companyID string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO memberships (user_id, company_id) VALUES ($1, $2)
		ON CONFLICT (user_id, company_id) DO NOTHING
	`, userID, companyID)
	if err != nil {
		return fmt.Errorf("failed to add membership: %w", mapPostgresError(err))
	}

	return nil
}

// RemoveMembership deletes the membership row. Both sides must exist.
func (s *Store) RemoveMembership(ctx context.Context, userID, companyID string) error {
	var userExists, companyExists bool
	err := s.pool.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE user_id = $1),
			EXISTS(SELECT 1 FROM companies WHERE company_id = $2)
	`, userID, companyID).Scan(&userExists, &companyExists)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", mapPostgresError(err))
	}

	switch {
	case !userExists:
		return store.ErrUserNotFound
	case !companyExists:
		return store.ErrCompanyNotFound
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM memberships WHERE user_id = $1 AND company_id = $2`, userID, companyID); err != nil {
		return fmt.Errorf("failed to remove membership: %w", mapPostgresError(err))
	}

	return nil
}
