package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

type updateUserRequest struct {
	DisplayName *string   `json:"display_name" validate:"omitempty,min=1"`
	Role        *string   `json:"role" validate:"omitempty,oneof=user manager admin"`
	CompanyIDs  *[]string `json:"company_ids"`
}

type createUserRequest struct {
	UserID      string   `json:"uid" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	DisplayName string   `json:"display_name"`
	Role        string   `json:"role" validate:"omitempty,oneof=user manager admin"`
	CompanyIDs  []string `json:"company_ids"`
}

// createUser pre-provisions a user record for an identity provider uid so
// memberships and roles are in place before their first sign in.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var req createUserRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	email := strings.ToLower(req.Email)

	_, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.writeError(w, r, fmt.Errorf("%w: email %s is taken", store.ErrUserExists, email))
		return
	case !errors.Is(err, store.ErrUserNotFound):
		s.writeError(w, r, err)
		return
	}

	user := models.NewUser(req.UserID, email, req.DisplayName, time.Now())
	if req.Role != "" {
		user.Role = models.Role(req.Role)
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.reconcileMemberships(ctx, user.UserID, nil, req.CompanyIDs); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.store.GetUser(ctx, user.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().Str("created_user_id", created.UserID).Strs("company_ids", created.CompanyIDs).Msg("user provisioned")

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// updateUser changes a user's display name or role, and reconciles their
// memberships with company_ids on both sides.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var req updateUserRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.DisplayName == nil && req.Role == nil && req.CompanyIDs == nil {
		s.writeError(w, r, errNoUpdates)
		return
	}

	ctx := r.Context()
	userID := r.PathValue("id")

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.DisplayName != nil || req.Role != nil {
		if req.DisplayName != nil {
			user.DisplayName = *req.DisplayName
		}
		if req.Role != nil {
			user.Role = models.Role(*req.Role)
		}
		if err := s.store.UpdateUser(ctx, user); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	if req.CompanyIDs != nil {
		if err := s.reconcileMemberships(ctx, userID, user.CompanyIDs, *req.CompanyIDs); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	updated, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// reconcileMemberships removes the user from companies no longer listed and
// adds them to new ones. Unknown companies are skipped.
func (s *Server) reconcileMemberships(ctx context.Context, userID string, current, wanted []string) error {
	log := zerolog.Ctx(ctx)

	for _, id := range current {
		if slices.Contains(wanted, id) {
			continue
		}
		err := s.store.RemoveMembership(ctx, userID, id)
		if errors.Is(err, store.ErrCompanyNotFound) {
			log.Warn().Str("company_id", id).Msg("skipping removal from missing company")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to remove membership of %s: %w", id, err)
		}
	}

	for _, id := range wanted {
		if slices.Contains(current, id) {
			continue
		}
		err := s.store.AddMembership(ctx, userID, id)
		if errors.Is(err, store.ErrCompanyNotFound) {
			log.Warn().Str("company_id", id).Msg("skipping membership of missing company")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to add membership of %s: %w", id, err)
		}
	}

	return nil
}

func (s *Server) listCompanyUsers(w http.ResponseWriter, r *http.Request) {
	companyID := r.PathValue("id")
	if _, ok := s.requireTenant(w, r, companyID); !ok {
		return
	}

	ctx := r.Context()
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	users := make([]*models.User, 0, len(company.UserIDs))
	for _, id := range company.UserIDs {
		u, err := s.store.GetUser(ctx, id)
		if errors.Is(err, store.ErrUserNotFound) {
			continue
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		users = append(users, u)
	}

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) listEmailTemplates(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	templates, err := s.notifier.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, templates)
}
