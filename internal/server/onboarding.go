package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/notify"
)

type updateStepRequest struct {
	Status          string   `json:"status" validate:"required"`
	SendEmail       bool     `json:"send_email"`
	TemplateName    string   `json:"template_name"`
	Subject         string   `json:"subject"`
	RecipientEmails []string `json:"recipient_emails" validate:"omitempty,dive,email"`
}

// updateStepResponse is the updated step, plus the email outcome when one was requested.
type updateStepResponse struct {
	*models.OnboardingStep
	EmailSent *bool           `json:"email_sent,omitempty"`
	Email     *notify.Outcome `json:"email,omitempty"`
}

func (s *Server) listSteps(w http.ResponseWriter, r *http.Request) {
	companyID := r.PathValue("id")
	if _, ok := s.requireTenant(w, r, companyID); !ok {
		return
	}

	steps, err := s.onboarding.ListSteps(r.Context(), companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, steps)
}

func (s *Server) updateStep(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var req updateStepRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	companyID, stepID := r.PathValue("id"), r.PathValue("stepId")

	step, err := s.onboarding.UpdateStepStatus(r.Context(), companyID, stepID, models.StepStatus(req.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := updateStepResponse{OnboardingStep: step}
	if req.SendEmail {
		outcome := s.notifyStepUpdate(r.Context(), companyID, step, req)
		sent := outcome.Delivered()
		resp.EmailSent = &sent
		resp.Email = &outcome
	}

	writeJSON(w, http.StatusOK, resp)
}

// notifyStepUpdate sends the step email. The step is already committed, so
// every failure here is folded into the returned outcome.
func (s *Server) notifyStepUpdate(ctx context.Context, companyID string, step *models.OnboardingStep, req updateStepRequest) notify.Outcome {
	vars := map[string]any{
		"COMPANY_ID":  companyID,
		"STEP_ID":     step.ID,
		"STEP_NAME":   step.Name,
		"STEP_STATUS": string(step.Status),
	}

	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("company_id", companyID).Msg("failed to load company for email")
		return notify.Outcome{Status: notify.OutcomeFailed, Reason: "failed to load company"}
	}
	vars["COMPANY_NAME"] = company.Name

	recipients := req.RecipientEmails
	if len(recipients) == 0 {
		recipients = s.memberEmails(ctx, company)
	}

	return s.notifier.Dispatch(ctx, notify.Request{
		TemplateName: req.TemplateName,
		Subject:      req.Subject,
		Recipients:   recipients,
		MergeVars:    vars,
	})
}

func (s *Server) memberEmails(ctx context.Context, company *models.Company) []string {
	var emails []string
	for _, id := range company.UserIDs {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", id).Msg("skipping member without user record")
			continue
		}
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails
}

func (s *Server) resyncSteps(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	res, err := s.onboarding.Resync(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
