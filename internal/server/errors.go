package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/auth"
	"github.com/wolfeidau/onboard/internal/invitation"
	"github.com/wolfeidau/onboard/internal/notify"
	"github.com/wolfeidau/onboard/internal/onboarding"
	"github.com/wolfeidau/onboard/internal/store"
)

const maxBodyBytes = 1 << 20

// Sentinel errors raised by the handlers themselves
var (
	errForbidden    = errors.New("forbidden")
	errAdminOnly    = errors.New("admin privileges required")
	errInvalidBody  = errors.New("invalid request body")
	errNoUpdates    = errors.New("no valid fields to update")
	errRedeemAsSelf = errors.New("invitations can only be redeemed for your own account")
)

// statusFor maps an error to a status code and the message safe to expose.
func statusFor(err error) (int, string) {
	notFound := []error{
		store.ErrCompanyNotFound,
		store.ErrStepNotFound,
		store.ErrInvitationNotFound,
		store.ErrUserNotFound,
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound, target.Error()
		}
	}

	conflicts := []error{
		store.ErrInvitationExists,
		store.ErrCompanyExists,
		store.ErrUserExists,
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			return http.StatusConflict, target.Error()
		}
	}

	// Terminal invitation states are reported with their sentinel text.
	for _, target := range []error{store.ErrInvitationUsed, invitation.ErrInvitationExpired} {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}

	badRequest := []error{
		errInvalidBody,
		errNoUpdates,
		onboarding.ErrInvalidStatus,
		onboarding.ErrInvalidName,
		onboarding.ErrInvalidTemplate,
		invitation.ErrInvalidExpiry,
		invitation.ErrInvalidInvitation,
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error()
		}
	}

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errForbidden), errors.Is(err, errAdminOnly), errors.Is(err, errRedeemAsSelf):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, store.ErrThrottled):
		return http.StatusServiceUnavailable, "service busy, retry later"
	case errors.Is(err, notify.ErrTimeout):
		return http.StatusGatewayTimeout, notify.ErrTimeout.Error()
	}

	return http.StatusInternalServerError, "internal server error"
}

// writeError logs err and writes it as {"error": "..."}. Upstream failures are
// never exposed verbatim.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)

	log := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: body is empty", errInvalidBody)
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	if reflect.Indirect(reflect.ValueOf(dst)).Kind() != reflect.Struct {
		return nil
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", errInvalidBody, describeValidation(verrs))
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func describeValidation(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be an email address")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}
