package server

import (
	"net/http"
	"strings"

	"github.com/wolfeidau/onboard/internal/invitation"
)

type createInvitationRequest struct {
	Code        string `json:"code"`
	CompanyID   string `json:"companyId" validate:"required"`
	CompanyName string `json:"companyName"`
	ExpiryDate  string `json:"expiryDate" validate:"required"`
}

type redeemInvitationRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email" validate:"omitempty,email"`
}

func (s *Server) createInvitation(w http.ResponseWriter, r *http.Request) {
	admin, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	var req createInvitationRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	company, err := s.store.GetCompany(r.Context(), req.CompanyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := req.CompanyName
	if name == "" {
		name = company.Name
	}

	inv, err := s.invitations.Create(r.Context(), invitation.NewInvitation{
		Code:        req.Code,
		CompanyID:   company.CompanyID,
		CompanyName: name,
		ExpiryDate:  req.ExpiryDate,
		CreatedBy:   admin.UserID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) getInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invitations.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, inv)
}

// redeemInvitation redeems for the caller. Admins may redeem on behalf of
// another user id; everyone else may only name themselves.
func (s *Server) redeemInvitation(w http.ResponseWriter, r *http.Request) {
	user := caller(r)

	var req redeemInvitationRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = user.UserID
	}
	if userID != user.UserID && !s.access.IsAdmin(r.Context(), user.UserID) {
		s.writeError(w, r, errRedeemAsSelf)
		return
	}

	email := req.Email
	if email == "" && userID == user.UserID {
		email = user.Email
	}

	inv, err := s.invitations.Redeem(r.Context(), r.PathValue("code"), userID, email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, inv)
}
