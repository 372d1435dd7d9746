// Package auth resolves the caller of an HTTP request. Credentials are bearer
// tokens: OIDC ID tokens verified against an issuer, or static tokens
// configured per subject.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// Caller identifies an authenticated principal.
type Caller struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	Method  string `json:"method"`
}

// Anonymous is the caller attached to requests when authentication is disabled.
var Anonymous = Caller{Subject: "anonymous", Method: "none"}

// Provider authenticates a request.
type Provider interface {
	Authenticate(r *http.Request) (*Caller, error)
}

// New builds the provider described by cfg. A disabled config yields a
// provider that admits every request as Anonymous.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (Provider, error) {
	logger = logger.With("system", "auth")

	if !cfg.Enabled {
		logger.Warn("authentication disabled")
		return anonymous{}, nil
	}

	var chain Chain

	if tokens := cfg.StaticTokens(); len(tokens) > 0 {
		chain = append(chain, NewStatic(tokens))
		logger.Info("static tokens configured", "count", len(tokens))
	}

	if cfg.Issuer != "" {
		p, err := NewOIDC(ctx, cfg.Issuer, cfg.ClientID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
		logger.Info("oidc issuer configured", "issuer", cfg.Issuer)
	}

	return chain, nil
}

type anonymous struct{}

func (anonymous) Authenticate(*http.Request) (*Caller, error) {
	c := Anonymous
	return &c, nil
}

// Chain tries each provider in order and returns the first success.
type Chain []Provider

// Authenticate implements Provider.
func (c Chain) Authenticate(r *http.Request) (*Caller, error) {
	for _, p := range c {
		if caller, err := p.Authenticate(r); err == nil {
			return caller, nil
		}
	}
	return nil, ErrUnauthorized
}

// Static authenticates bearer tokens against a fixed token to subject map.
type Static struct {
	tokens map[string]string
}

// NewStatic creates a Static provider from a token to subject map.
func NewStatic(tokens map[string]string) *Static {
	return &Static{tokens: tokens}
}

// Authenticate implements Provider.
func (s *Static) Authenticate(r *http.Request) (*Caller, error) {
	raw := BearerToken(r)
	if raw == "" {
		return nil, ErrUnauthorized
	}
	for token, subject := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(raw)) == 1 {
			return &Caller{Subject: subject, Method: "token"}, nil
		}
	}
	return nil, ErrUnauthorized
}

// OIDC authenticates bearer ID tokens with an issuer's verifier.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDC discovers the issuer's configuration and creates a verifier that
// requires tokens issued for clientID.
func NewOIDC(ctx context.Context, issuer, clientID string) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", issuer, err)
	}
	return NewOIDCVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// NewOIDCVerifier wraps an existing verifier.
func NewOIDCVerifier(v *oidc.IDTokenVerifier) *OIDC {
	return &OIDC{verifier: v}
}

// Authenticate implements Provider.
func (o *OIDC) Authenticate(r *http.Request) (*Caller, error) {
	raw := BearerToken(r)
	if raw == "" {
		return nil, ErrUnauthorized
	}

	token, err := o.verifier.Verify(r.Context(), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return &Caller{Subject: token.Subject, Email: claims.Email, Method: "oidc"}, nil
}

// BearerToken extracts a bearer token from the Authorization header, or
// from the access_token query parameter for clients (browsers opening a
// WebSocket) that cannot set headers.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
