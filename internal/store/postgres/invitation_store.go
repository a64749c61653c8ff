package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

const invitationColumns = `
	code, company_id, company_name, expiry_date, created_at, created_by,
	used, COALESCE(used_by, ''), used_at, COALESCE(user_email, '')`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(
		&inv.Code,
		&inv.CompanyID,
		&inv.CompanyName,
		&inv.ExpiryDate,
		&inv.CreatedAt,
		&inv.CreatedBy,
		&inv.Used,
		&inv.UsedBy,
		&inv.UsedAt,
		&inv.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	inv.ExpiryDate = inv.ExpiryDate.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	if inv.UsedAt != nil {
		at := inv.UsedAt.UTC()
		inv.UsedAt = &at
	}
	return &inv, nil
}

// CreateInvitation inserts an invitation row.
func (s *Store) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO invitations (code, company_id, company_name, expiry_date, created_at, created_by, used)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, inv.Code, inv.CompanyID, inv.CompanyName, inv.ExpiryDate, inv.CreatedAt, inv.CreatedBy, inv.Used)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrInvitationExists) {
			return store.ErrInvitationExists
		}
		return fmt.Errorf("failed to create invitation: %w", mapped)
	}

	log.Debug().
		Str("code", inv.Code).
		Str("company_id", inv.CompanyID).
		Msg("Created invitation")

	return nil
}

// GetInvitation retrieves an invitation by code.
func (s *Store) GetInvitation(ctx context.Context, code string) (*models.Invitation, error) {
	inv, err := scanInvitation(s.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", mapPostgresError(err))
	}

	return inv, nil
}

// RedeemInvitation claims the invitation with a conditional update and grants
// membership in the same transaction.
func (s *Store) RedeemInvitation(ctx context.Context, r store.Redemption) (*models.Invitation, error) {
	var redeemed *models.Invitation

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		inv, err := scanInvitation(tx.QueryRow(ctx, `
			UPDATE invitations
			SET used = true, used_by = $2, used_at = $3, user_email = $4
			WHERE code = $1 AND used = false
			RETURNING `+invitationColumns,
			r.Code, r.UserID, r.At.UTC(), r.Email))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to claim invitation: %w", mapPostgresError(err))
			}

			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM invitations WHERE code = $1)`, r.Code).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check invitation: %w", mapPostgresError(err))
			}
			if exists {
				return store.ErrInvitationUsed
			}
			return store.ErrInvitationNotFound
		}

		minimal := models.NewUser(r.UserID, r.Email, "", r.At)
		_, err = tx.Exec(ctx, `
			INSERT INTO users (user_id, email, display_name, role, created_at, profile)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO NOTHING
		`, minimal.UserID, minimal.Email, minimal.DisplayName, minimal.Role, minimal.CreatedAt, minimal.Profile)
		if err != nil {
			return fmt.Errorf("failed to ensure user: %w", mapPostgresError(err))
		}

		if err := addMembership(ctx, tx, r.UserID, inv.CompanyID); err != nil {
			return err
		}

		redeemed = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	return redeemed, nil
}
