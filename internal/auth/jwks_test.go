package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://securetoken.google.com/onboard-test"
	testAudience = "onboard-test"
)

type testKeys struct {
	ec  *ecdsa.PrivateKey
	rsa *rsa.PrivateKey
}

func newTestKeys(t *testing.T) *testKeys {
	t.Helper()

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &testKeys{ec: ecKey, rsa: rsaKey}
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func (k *testKeys) jwksServer(t *testing.T) *httptest.Server {
	t.Helper()

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "EC",
				"crv": "P-256",
				"kid": "ec-1",
				"x":   b64(k.ec.X.FillBytes(make([]byte, 32))),
				"y":   b64(k.ec.Y.FillBytes(make([]byte, 32))),
			},
			{
				"kty": "RSA",
				"kid": "rsa-1",
				"n":   b64(k.rsa.N.Bytes()),
				"e":   b64(big.NewInt(int64(k.rsa.E)).Bytes()),
			},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func signToken(t *testing.T, method jwt.SigningMethod, kid string, key any, claims jwt.Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = kid

	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() idTokenClaims {
	now := time.Now()
	return idTokenClaims{
		Email: "alice@example.com",
		Name:  "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "uid-alice",
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestJWKSVerifier_Verify(t *testing.T) {
	keys := newTestKeys(t)
	srv := keys.jwksServer(t)

	v := NewJWKSVerifier(JWKSConfig{
		JWKSURL:  srv.URL,
		Issuer:   testIssuer,
		Audience: testAudience,
	}, srv.Client())

	ctx := context.Background()

	t.Run("valid ES256 token", func(t *testing.T) {
		claims := validClaims()
		token := signToken(t, jwt.SigningMethodES256, "ec-1", keys.ec, &claims)

		id, err := v.Verify(ctx, token)
		require.NoError(t, err)
		require.Equal(t, "uid-alice", id.UID)
		require.Equal(t, "alice@example.com", id.Email)
		require.Equal(t, "Alice", id.Name)
	})

	t.Run("valid RS256 token", func(t *testing.T) {
		claims := validClaims()
		token := signToken(t, jwt.SigningMethodRS256, "rsa-1", keys.rsa, &claims)

		id, err := v.Verify(ctx, token)
		require.NoError(t, err)
		require.Equal(t, "uid-alice", id.UID)
	})

	tests := []struct {
		name   string
		mutate func(c *idTokenClaims)
		kid    string
	}{
		{name: "expired", mutate: func(c *idTokenClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) }, kid: "ec-1"},
		{name: "wrong issuer", mutate: func(c *idTokenClaims) { c.Issuer = "https://evil.example.com" }, kid: "ec-1"},
		{name: "wrong audience", mutate: func(c *idTokenClaims) { c.Audience = jwt.ClaimStrings{"other"} }, kid: "ec-1"},
		{name: "missing subject", mutate: func(c *idTokenClaims) { c.Subject = "" }, kid: "ec-1"},
		{name: "missing expiry", mutate: func(c *idTokenClaims) { c.ExpiresAt = nil }, kid: "ec-1"},
		{name: "unknown kid", mutate: func(c *idTokenClaims) {}, kid: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims()
			tt.mutate(&claims)
			token := signToken(t, jwt.SigningMethodES256, tt.kid, keys.ec, &claims)

			_, err := v.Verify(ctx, token)
			require.ErrorIs(t, err, ErrUnauthenticated)
		})
	}

	t.Run("signed by another key", func(t *testing.T) {
		other := newTestKeys(t)
		claims := validClaims()
		token := signToken(t, jwt.SigningMethodES256, "ec-1", other.ec, &claims)

		_, err := v.Verify(ctx, token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-a-jwt")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestJWKSVerifier_KeysUnavailable(t *testing.T) {
	keys := newTestKeys(t)
	claims := validClaims()
	token := signToken(t, jwt.SigningMethodES256, "ec-1", keys.ec, &claims)

	t.Run("provider error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		v := NewJWKSVerifier(JWKSConfig{JWKSURL: srv.URL, Issuer: testIssuer, Audience: testAudience}, srv.Client())

		_, err := v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrKeysUnavailable)
		require.NotErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		v := NewJWKSVerifier(JWKSConfig{JWKSURL: url, Issuer: testIssuer, Audience: testAudience}, nil)

		_, err := v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrKeysUnavailable)
		require.NotErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestParseJWK_Unsupported(t *testing.T) {
	_, err := parseJWK(map[string]any{"kty": "oct"})
	require.Error(t, err)

	_, err = parseJWK(map[string]any{"kty": "EC", "crv": "P-384"})
	require.Error(t, err)
}

func TestFirebaseIssuer(t *testing.T) {
	require.Equal(t, "https://securetoken.google.com/my-project", FirebaseIssuer("my-project"))
}
