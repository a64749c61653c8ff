package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/auth"
	"github.com/wolfeidau/onboard/internal/client"
	"github.com/wolfeidau/onboard/internal/notify"
	"github.com/wolfeidau/onboard/internal/secrets"
)

// Token verification modes
const (
	authModeJWT    = "jwt"
	authModeStatic = "static"
)

type AuthFlags struct {
	Mode            string        `help:"token verification mode (jwt or static)" default:"jwt" env:"ONBOARD_AUTH_MODE" enum:"jwt,static"`
	FirebaseProject string        `help:"Firebase project id, sets the issuer and audience" default:"" env:"ONBOARD_AUTH_FIREBASE_PROJECT"`
	Issuer          string        `help:"expected token issuer (overrides the Firebase issuer)" default:"" env:"ONBOARD_AUTH_ISSUER"`
	Audience        string        `help:"expected token audience (overrides the Firebase project)" default:"" env:"ONBOARD_AUTH_AUDIENCE"`
	JWKSURL         string        `name:"jwks-url" help:"JWKS URL publishing the signing keys" default:"" env:"ONBOARD_AUTH_JWKS_URL"`
	CacheDir        string        `help:"directory for caching JWKS responses, in memory when empty" default:"" env:"ONBOARD_AUTH_CACHE_DIR"`
	Leeway          time.Duration `help:"allowed clock skew when validating tokens" default:"30s"`
	StaticTokens    string        `help:"YAML file mapping bearer tokens to identities (development only)" default:"" env:"ONBOARD_AUTH_STATIC_TOKENS"`
}

func (a *AuthFlags) Validate() error {
	switch a.Mode {
	case authModeStatic:
		if a.StaticTokens == "" {
			return errors.New("static tokens file is required (--auth-static-tokens or ONBOARD_AUTH_STATIC_TOKENS)")
		}
	case authModeJWT:
		if a.FirebaseProject == "" && (a.Issuer == "" || a.Audience == "" || a.JWKSURL == "") {
			return errors.New("a Firebase project or an issuer, audience and JWKS URL are required (--auth-firebase-project or ONBOARD_AUTH_FIREBASE_PROJECT)")
		}
	}
	return nil
}

// Verifier builds the token verifier for the configured mode.
func (a *AuthFlags) Verifier(ctx context.Context) (auth.Verifier, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate auth flags: %w", err)
	}

	log := zerolog.Ctx(ctx)

	if a.Mode == authModeStatic {
		log.Warn().Str("file", a.StaticTokens).Msg("Using static token identities. This should only be used in development!")
		v, err := auth.LoadStaticVerifier(a.StaticTokens)
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	cfg := auth.JWKSConfig{
		JWKSURL:  a.JWKSURL,
		Issuer:   a.Issuer,
		Audience: a.Audience,
		Leeway:   a.Leeway,
	}
	if a.FirebaseProject != "" {
		if cfg.JWKSURL == "" {
			cfg.JWKSURL = auth.FirebaseJWKSURL
		}
		if cfg.Issuer == "" {
			cfg.Issuer = auth.FirebaseIssuer(a.FirebaseProject)
		}
		if cfg.Audience == "" {
			cfg.Audience = a.FirebaseProject
		}
	}

	log.Info().Str("issuer", cfg.Issuer).Str("jwks_url", cfg.JWKSURL).Msg("Verifying ID tokens")

	return auth.NewJWKSVerifier(cfg, client.NewCachingHTTPClient(a.CacheDir, 10*time.Second)), nil
}

type MandrillFlags struct {
	APIKey          string        `help:"Mandrill API key" default:"" env:"ONBOARD_MANDRILL_API_KEY"`
	APIKeyFile      string        `help:"file containing the Mandrill API key (for local development)" default:"" env:"ONBOARD_MANDRILL_API_KEY_FILE"`
	APIKeyParameter string        `help:"SSM parameter holding the Mandrill API key" default:"" env:"ONBOARD_MANDRILL_API_KEY_PARAMETER"`
	BaseURL         string        `help:"Mandrill API base URL" default:"" env:"ONBOARD_MANDRILL_BASE_URL"`
	FromEmail       string        `help:"sender address for notifications" default:"" env:"ONBOARD_MANDRILL_FROM_EMAIL"`
	FromName        string        `help:"sender name for notifications" default:"" env:"ONBOARD_MANDRILL_FROM_NAME"`
	DefaultTemplate string        `help:"template used when a request names none" default:"" env:"ONBOARD_MANDRILL_DEFAULT_TEMPLATE"`
	DefaultSubject  string        `help:"subject used when a request sets none" default:"" env:"ONBOARD_MANDRILL_DEFAULT_SUBJECT"`
	Timeout         time.Duration `help:"timeout for a single send" default:"15s" env:"ONBOARD_MANDRILL_TIMEOUT"`
}

func (m *MandrillFlags) source() secrets.Source {
	return secrets.Source{Value: m.APIKey, File: m.APIKeyFile, SSMParameter: m.APIKeyParameter}
}

// Dispatcher builds the email dispatcher. Email is disabled when no key source
// is configured.
func (m *MandrillFlags) Dispatcher(ctx context.Context, loader *secrets.Loader) (*notify.Dispatcher, error) {
	cfg := notify.DispatcherConfig{
		FromEmail:       m.FromEmail,
		FromName:        m.FromName,
		DefaultTemplate: m.DefaultTemplate,
		DefaultSubject:  m.DefaultSubject,
	}

	if m.source().Empty() {
		zerolog.Ctx(ctx).Warn().Msg("No Mandrill API key configured, email notifications are disabled")
		return notify.NewDispatcher(nil, cfg), nil
	}

	key, err := loader.Load(ctx, m.source())
	if err != nil {
		return nil, fmt.Errorf("failed to load Mandrill API key: %w", err)
	}

	sender := notify.NewMandrill(notify.MandrillConfig{
		APIKey:      key,
		BaseURL:     m.BaseURL,
		SendTimeout: m.Timeout,
	}, nil)

	return notify.NewDispatcher(sender, cfg), nil
}
