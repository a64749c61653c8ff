package server

import (
	"net/http"

	"github.com/wolfeidau/onboard/internal/auth"
	"github.com/wolfeidau/onboard/internal/models"
)

// caller returns the authenticated user. Handlers registered behind the auth
// middleware always have one.
func caller(r *http.Request) *models.User {
	return auth.UserFromContext(r.Context())
}

// requireAdmin writes 403 unless the caller's persisted role is admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := caller(r)
	if user == nil || !s.access.IsAdmin(r.Context(), user.UserID) {
		s.writeError(w, r, errAdminOnly)
		return nil, false
	}
	return user, true
}

// requireTenant writes 403 unless the caller is an admin or a member of companyID.
func (s *Server) requireTenant(w http.ResponseWriter, r *http.Request, companyID string) (*models.User, bool) {
	user := caller(r)
	if user == nil || !s.access.CanAccessTenant(r.Context(), user.UserID, companyID) {
		s.writeError(w, r, errForbidden)
		return nil, false
	}
	return user, true
}
