package server

import (
	"maps"
	"net/http"
)

type patchProfileRequest struct {
	DisplayName *string        `json:"display_name" validate:"omitempty,min=1"`
	Profile     map[string]any `json:"profile"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, caller(r))
}

// patchProfile updates the caller's display name and merges top level
// profile keys. A null value removes the key.
func (s *Server) patchProfile(w http.ResponseWriter, r *http.Request) {
	var req patchProfileRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.DisplayName == nil && len(req.Profile) == 0 {
		s.writeError(w, r, errNoUpdates)
		return
	}

	user, err := s.store.GetUser(r.Context(), caller(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if user.Profile == nil {
		user.Profile = map[string]any{}
	}
	maps.Copy(user.Profile, req.Profile)
	maps.DeleteFunc(user.Profile, func(_ string, v any) bool { return v == nil })

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
