package server

import (
	"errors"
	"maps"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// companySummary is the list view of a company; steps are left out.
type companySummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UserIDs   []string  `json:"user_ids"`
}

type companyDetail struct {
	*models.Company
	UserIsAdmin bool `json:"user_is_admin"`
}

type createCompanyRequest struct {
	Name    string   `json:"name" validate:"required"`
	UserIDs []string `json:"user_ids" validate:"omitempty,dive,required"`
}

func summarize(c *models.Company) companySummary {
	return companySummary{ID: c.CompanyID, Name: c.Name, CreatedAt: c.CreatedAt, UserIDs: c.UserIDs}
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := caller(r)

	var companies []*models.Company
	if s.access.IsAdmin(ctx, user.UserID) {
		all, err := s.store.ListCompanies(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		companies = all
	} else {
		fresh, err := s.store.GetUser(ctx, user.UserID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		for _, id := range fresh.CompanyIDs {
			c, err := s.store.GetCompany(ctx, id)
			if errors.Is(err, store.ErrCompanyNotFound) {
				zerolog.Ctx(ctx).Warn().Str("company_id", id).Msg("membership references missing company")
				continue
			}
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			companies = append(companies, c)
		}
	}

	out := make([]companySummary, 0, len(companies))
	for _, c := range companies {
		out = append(out, summarize(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	companyID := r.PathValue("id")
	user, ok := s.requireTenant(w, r, companyID)
	if !ok {
		return
	}

	company, err := s.store.GetCompany(r.Context(), companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, companyDetail{
		Company:     company,
		UserIsAdmin: s.access.IsAdmin(r.Context(), user.UserID),
	})
}

func (s *Server) createCompany(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var req createCompanyRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	company, err := s.onboarding.CreateCompany(r.Context(), req.Name, req.UserIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, company)
}

func (s *Server) getBilling(w http.ResponseWriter, r *http.Request) {
	companyID := r.PathValue("id")
	if _, ok := s.requireTenant(w, r, companyID); !ok {
		return
	}

	company, err := s.store.GetCompany(r.Context(), companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	billing := company.Billing
	if billing == nil {
		billing = models.DefaultBilling()
	}
	writeJSON(w, http.StatusOK, billing)
}

// patchBilling merges the supplied top level keys into the billing record.
func (s *Server) patchBilling(w http.ResponseWriter, r *http.Request) {
	companyID := r.PathValue("id")
	if _, ok := s.requireTenant(w, r, companyID); !ok {
		return
	}

	var patch map[string]any
	if err := s.decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(patch) == 0 {
		s.writeError(w, r, errNoUpdates)
		return
	}

	company, err := s.store.GetCompany(r.Context(), companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	billing := company.Billing
	if billing == nil {
		billing = models.DefaultBilling()
	}
	maps.Copy(billing, patch)

	if err := s.store.UpdateBilling(r.Context(), companyID, billing); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, billing)
}
