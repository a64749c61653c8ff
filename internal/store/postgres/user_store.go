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

const userColumns = `
	u.user_id, u.email, u.display_name, u.role, u.created_at, u.profile,
	COALESCE(
		(SELECT array_agg(m.company_id ORDER BY m.created_at, m.company_id)
		 FROM memberships m WHERE m.user_id = u.user_id),
		'{}'
	)`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.UserID,
		&u.Email,
		&u.DisplayName,
		&u.Role,
		&u.CreatedAt,
		&u.Profile,
		&u.CompanyIDs,
	)
	if err != nil {
		return nil, err
	}
	if u.Profile == nil {
		u.Profile = map[string]any{}
	}
	return &u, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", mapPostgresError(err))
	}

	return u, nil
}

// GetUserByEmail returns the earliest created user with the email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.email = $1 ORDER BY u.created_at, u.user_id LIMIT 1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", mapPostgresError(err))
	}

	return u, nil
}

// CreateUser inserts a user row.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	profile := user.Profile
	if profile == nil {
		profile = map[string]any{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, email, display_name, role, created_at, profile)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.UserID, user.Email, user.DisplayName, user.Role, user.CreatedAt, profile)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrUserExists) {
			return store.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", mapped)
	}

	log.Debug().
		Str("user_id", user.UserID).
		Str("role", string(user.Role)).
		Msg("Created user")

	return nil
}

// UpdateUser updates display name, role and profile. Email is left as stored.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	profile := user.Profile
	if profile == nil {
		profile = map[string]any{}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET display_name = $2, role = $3, profile = $4
		WHERE user_id = $1
	`, user.UserID, user.DisplayName, user.Role, profile)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapPostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
