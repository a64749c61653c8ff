package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfeidau/onboard/internal/access"
	"github.com/wolfeidau/onboard/internal/auth"
	"github.com/wolfeidau/onboard/internal/backend"
	"github.com/wolfeidau/onboard/internal/invitation"
	"github.com/wolfeidau/onboard/internal/logger"
	"github.com/wolfeidau/onboard/internal/onboarding"
	"github.com/wolfeidau/onboard/internal/secrets"
	"github.com/wolfeidau/onboard/internal/server"
	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/telemetry"
)

type ServeCmd struct {
	// Server configuration
	Listen          string        `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"ONBOARD_LISTEN"`
	ShutdownTimeout time.Duration `help:"time allowed for in-flight requests on shutdown" default:"15s" env:"ONBOARD_SHUTDOWN_TIMEOUT"`
	CompressMinSize int           `help:"minimum response size in bytes before gzip is applied" default:"1024"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"ONBOARD_CORS_ORIGINS"`

	// Development and operational modes
	Development      bool    `help:"development mode - create tables in DynamoDB Local" default:"false" env:"ONBOARD_DEVELOPMENT"`
	DevelopmentClean bool    `help:"clean resources on startup in development mode (deletes all data)" default:"false" env:"ONBOARD_DEVELOPMENT_CLEAN"`
	Tracing          bool    `help:"enable tracing" default:"false" env:"ONBOARD_TRACING"`
	SampleRatio      float64 `help:"fraction of root traces sampled" default:"1.0" env:"ONBOARD_TRACE_SAMPLE_RATIO"`

	// Onboarding configuration
	StepTemplate string `help:"YAML file overriding the default onboarding steps" default:"" env:"ONBOARD_STEP_TEMPLATE"`

	Store    backend.Flags `embed:""`
	Auth     AuthFlags     `embed:"" prefix:"auth-"`
	Mandrill MandrillFlags `embed:"" prefix:"mandrill-"`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		provider, err := telemetry.Setup(ctx, telemetry.Config{
			ServiceName: "onboard-api",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := provider.Shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
	}

	// Development mode: auto-setup DynamoDB Local tables
	if c.Development {
		log.Info().Msg("Development mode enabled - setting up DynamoDB Local tables")
		if err := c.Store.SetupDevelopment(ctx, c.DevelopmentClean); err != nil {
			return err
		}
	}

	st, closeStore, err := c.Store.Open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	verifier, err := c.Auth.Verifier(ctx)
	if err != nil {
		return err
	}

	dispatcher, err := c.Mandrill.Dispatcher(ctx, secrets.NewLoader(nil))
	if err != nil {
		return err
	}

	onboardingSvc, err := c.onboardingService(st)
	if err != nil {
		return err
	}

	srv := server.NewServer(server.Services{
		Store:       st,
		Resolver:    auth.NewResolver(verifier, st),
		Access:      access.NewChecker(st),
		Onboarding:  onboardingSvc,
		Invitations: invitation.NewLedger(st),
		Notifier:    dispatcher,
	})

	handler, err := srv.Handler(log, server.Options{
		CORSOrigins:     c.CORSOrigins,
		Tracing:         c.Tracing,
		CompressMinSize: c.CompressMinSize,
	})
	if err != nil {
		return err
	}

	httpServer := configureHTTPServer(c.Listen, handler)
	httpServer.BaseContext = func(_ net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("store", c.Store.StoreType).Bool("email", dispatcher.Enabled()).Msg("Starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	return nil
}

func (c *ServeCmd) onboardingService(st store.Store) (*onboarding.Service, error) {
	opts := []onboarding.Option{onboarding.OnStepUpdated(onboarding.RecordMetrics)}

	if c.StepTemplate != "" {
		defs, err := onboarding.LoadTemplate(c.StepTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to load step template: %w", err)
		}
		opts = append(opts, onboarding.WithTemplate(defs))
	}

	return onboarding.NewService(st, opts...), nil
}
