package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/imagehub/imagehub/go-services/internal/config"
	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
)

// Identity is the verified subject extracted from a provider ID token.
type Identity struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchanger exchanges an authorization code for provider tokens.
// It is satisfied by *Provider and by test fakes.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// IdentitySource verifies a provider token response and extracts the identity.
type IdentitySource interface {
	ExtractIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error)
}

// Provider wraps the discovered OIDC provider, the OAuth2 code-exchange
// configuration and the ID-token verifier.
type Provider struct {
	provider *oidc.Provider
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewProvider performs issuer discovery and builds the exchange configuration.
// Called once at startup in OIDC mode.
func NewProvider(ctx context.Context, cfg *config.Config) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Auth.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider: %w", err)
	}
	oauth2Config := oauth2.Config{
		ClientID:     cfg.Auth.OIDCClientID,
		ClientSecret: cfg.Auth.OIDCClientSecret,
		RedirectURL:  cfg.Auth.OIDCRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       cfg.Auth.OIDCScopes,
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.Auth.OIDCClientID})
	return &Provider{provider: provider, oauth2: oauth2Config, verifier: verifier}, nil
}

// AuthCodeURL returns the provider authorization URL bound to the given state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// Exchange trades an authorization code for provider tokens.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", apierrors.ErrProviderExchange, err)
	}
	return token, nil
}

// ExtractIdentity verifies the ID token carried in the token response against
// the provider's published keys and decodes the identity claims.
func (p *Provider) ExtractIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("%w: no id_token in token response", apierrors.ErrProviderExchange)
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: verify id token: %v", apierrors.ErrProviderExchange, err)
	}
	var ident Identity
	if err := idToken.Claims(&ident); err != nil {
		return nil, fmt.Errorf("%w: extract claims: %v", apierrors.ErrProviderExchange, err)
	}
	return &ident, nil
}
