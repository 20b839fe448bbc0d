// Package auth verifies Google ID tokens and manages the gateway session cookie.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var (
	ErrNoToken      = errors.New("auth: no token provided")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is the verified user behind a request.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verifier turns a raw ID token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (Identity, error)
}

// IDTokenVerifier checks signature, issuer, audience and expiry of Google ID tokens.
type IDTokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier verifies tokens issued to clientID against Google's published keys.
// Keys are fetched lazily on first use.
func NewGoogleVerifier(ctx context.Context, clientID string) *IDTokenVerifier {
	keys := oidc.NewRemoteKeySet(ctx, googleJWKSURL)
	return NewVerifier(googleIssuer, keys, clientID)
}

// NewVerifier builds a verifier over an arbitrary key set.
func NewVerifier(issuer string, keys oidc.KeySet, clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{
		verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID}),
	}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, rawIDToken string) (Identity, error) {
	if rawIDToken == "" {
		return Identity{}, ErrNoToken
	}
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var id Identity
	if err := token.Claims(&id); err != nil {
		return Identity{}, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}
	id.Subject = token.Subject
	return id, nil
}
