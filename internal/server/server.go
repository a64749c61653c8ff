package server

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/access"
	"github.com/wolfeidau/onboard/internal/auth"
	httpmiddleware "github.com/wolfeidau/onboard/internal/http"
	"github.com/wolfeidau/onboard/internal/invitation"
	"github.com/wolfeidau/onboard/internal/logger"
	"github.com/wolfeidau/onboard/internal/notify"
	"github.com/wolfeidau/onboard/internal/onboarding"
	"github.com/wolfeidau/onboard/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Services are the collaborators the HTTP handlers delegate to.
type Services struct {
	Store       store.Store
	Resolver    *auth.Resolver
	Access      *access.Checker
	Onboarding  *onboarding.Service
	Invitations *invitation.Ledger
	Notifier    *notify.Dispatcher
}

// Options configure the outer middleware stack.
type Options struct {
	CORSOrigins     []string
	Tracing         bool
	CompressMinSize int
}

// Server serves the onboarding REST API
type Server struct {
	store       store.Store
	resolver    *auth.Resolver
	access      *access.Checker
	onboarding  *onboarding.Service
	invitations *invitation.Ledger
	notifier    *notify.Dispatcher
	validate    *validator.Validate
}

// NewServer creates a new server with the given services
func NewServer(svcs Services) *Server {
	return &Server{
		store:       svcs.Store,
		resolver:    svcs.Resolver,
		access:      svcs.Access,
		onboarding:  svcs.Onboarding,
		invitations: svcs.Invitations,
		notifier:    svcs.Notifier,
		validate:    newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	authed := auth.Middleware(s.resolver, s.writeError)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", s.health)

	mux.Handle("GET /companies", protect(s.listCompanies))
	mux.Handle("POST /companies", protect(s.createCompany))
	mux.Handle("GET /companies/{id}", protect(s.getCompany))
	mux.Handle("GET /companies/{id}/billing", protect(s.getBilling))
	mux.Handle("PATCH /companies/{id}/billing", protect(s.patchBilling))

	mux.Handle("GET /companies/{id}/onboarding", protect(s.listSteps))
	mux.Handle("PUT /companies/{id}/onboarding/{stepId}", protect(s.updateStep))
	mux.Handle("POST /companies/{id}/onboarding/resync", protect(s.resyncSteps))

	mux.Handle("POST /invitations", protect(s.createInvitation))
	mux.HandleFunc("GET /invitations/{code}", s.getInvitation)
	mux.Handle("POST /invitations/{code}/use", protect(s.redeemInvitation))

	mux.Handle("GET /admin/users", protect(s.listUsers))
	mux.Handle("POST /admin/users", protect(s.createUser))
	mux.Handle("PUT /admin/users/{id}", protect(s.updateUser))
	mux.Handle("GET /admin/companies/{id}/users", protect(s.listCompanyUsers))
	mux.Handle("GET /admin/email-templates", protect(s.listEmailTemplates))

	mux.Handle("GET /account/profile", protect(s.getProfile))
	mux.Handle("PATCH /account/profile", protect(s.patchProfile))

	return mux
}

// Handler returns the routes wrapped in the request middleware stack.
func (s *Server) Handler(log zerolog.Logger, opts Options) (http.Handler, error) {
	minSize := opts.CompressMinSize
	if minSize == 0 {
		minSize = 1024
	}
	compress, err := httpmiddleware.Compress(minSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create compression middleware: %w", err)
	}

	var handler http.Handler = httpmiddleware.Chain(s.Routes(),
		httpmiddleware.ClientIPMiddleware(),
		logger.HTTPRequests(log),
		httpmiddleware.Recover(),
		withCORS(opts.CORSOrigins),
		compress,
	)

	if opts.Tracing {
		handler = otelhttp.NewHandler(handler, "onboard-api")
	}

	return handler, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(store.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("store health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCORS allows the web client's origins to call the API with bearer tokens.
func withCORS(allowedOrigins []string) httpmiddleware.Middleware {
	if len(allowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	return middleware.Handler
}
