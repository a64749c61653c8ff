package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// FirebaseJWKSURL publishes the keys used to sign Firebase Auth ID tokens.
const FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// FirebaseIssuer returns the ID token issuer for a Firebase project.
func FirebaseIssuer(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}

// JWKSConfig configures a JWKSVerifier.
type JWKSConfig struct {
	JWKSURL  string
	Issuer   string
	Audience string
	// Leeway allows for clock skew when validating exp, iat and nbf.
	Leeway time.Duration
}

// idTokenClaims are the claims carried by an identity provider ID token.
type idTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWKSVerifier verifies RS256 and ES256 ID tokens against keys published at a JWKS URL.
// Keys are fetched on each verification; the HTTP client is expected to cache
// responses according to their Cache-Control headers.
type JWKSVerifier struct {
	cfg        JWKSConfig
	httpClient *http.Client
}

var _ Verifier = (*JWKSVerifier)(nil)

// NewJWKSVerifier creates a new JWKS verifier.
func NewJWKSVerifier(cfg JWKSConfig, httpClient *http.Client) *JWKSVerifier {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	return &JWKSVerifier{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

// Verify validates the token signature, issuer, audience and expiry, returning the asserted identity.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	var (
		claims   idTokenClaims
		fetchErr error
	)
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("missing kid header")
		}
		key, err := v.key(ctx, kid)
		if errors.Is(err, ErrKeysUnavailable) {
			fetchErr = err
		}
		return key, err
	}, opts...)
	if fetchErr != nil {
		return nil, fetchErr
	}
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("JWT verification failed")
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrUnauthenticated)
	}

	return &Identity{
		UID:   claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}

// key fetches the JWKS document and returns the public key for kid.
func (v *JWKSVerifier) key(ctx context.Context, kid string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create JWKS request: %v", ErrKeysUnavailable, err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch JWKS: %v", ErrKeysUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: JWKS request failed: %s", ErrKeysUnavailable, resp.Status)
	}

	var jwks struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWKS: %v", ErrKeysUnavailable, err)
	}

	for _, jwk := range jwks.Keys {
		if id, _ := jwk["kid"].(string); id != kid {
			continue
		}
		return parseJWK(jwk)
	}

	return nil, fmt.Errorf("kid not found in JWKS: %s", kid)
}

// parseJWK parses an RSA or P-256 EC JSON Web Key into a public key.
func parseJWK(jwk map[string]any) (any, error) {
	kty, _ := jwk["kty"].(string)

	switch kty {
	case "RSA":
		n, err := jwkBigInt(jwk, "n")
		if err != nil {
			return nil, err
		}
		e, err := jwkBigInt(jwk, "e")
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil

	case "EC":
		if crv, _ := jwk["crv"].(string); crv != "P-256" {
			return nil, fmt.Errorf("unsupported curve: %v", jwk["crv"])
		}
		x, err := jwkBigInt(jwk, "x")
		if err != nil {
			return nil, err
		}
		y, err := jwkBigInt(jwk, "y")
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil

	default:
		return nil, fmt.Errorf("unsupported key type: %v", kty)
	}
}

func jwkBigInt(jwk map[string]any, field string) (*big.Int, error) {
	s, ok := jwk[field].(string)
	if !ok {
		return nil, fmt.Errorf("missing %s", field)
	}

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", field, err)
	}

	return new(big.Int).SetBytes(b), nil
}
