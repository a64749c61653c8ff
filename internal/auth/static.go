package auth

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StaticVerifier accepts a fixed set of tokens, each mapped to an identity.
// It stands in for the identity provider during local development and tests.
type StaticVerifier struct {
	tokens map[string]Identity
}

var _ Verifier = (*StaticVerifier)(nil)

// NewStaticVerifier creates a verifier from a token to identity map.
func NewStaticVerifier(tokens map[string]Identity) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

// LoadStaticVerifier reads a YAML document of the form:
//
//	tokens:
//	  dev-admin-token:
//	    uid: admin-1
//	    email: admin@example.com
func LoadStaticVerifier(path string) (*StaticVerifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read static identities: %w", err)
	}

	var doc struct {
		Tokens map[string]Identity `yaml:"tokens"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse static identities: %w", err)
	}

	for token, id := range doc.Tokens {
		if id.UID == "" {
			return nil, fmt.Errorf("static identity for token %q has no uid", token)
		}
	}

	return NewStaticVerifier(doc.Tokens), nil
}

// Verify looks the token up in the static map.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	id, ok := v.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", ErrUnauthenticated)
	}
	return &id, nil
}
