// Package oidc implements the SSO login adapter against any OpenID Connect
// identity provider discovered from its well-known configuration.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/seqdepot/seqdepot/internal/domain/auth"
	"github.com/seqdepot/seqdepot/internal/ports"
	"golang.org/x/oauth2"
)

// fallbackIdentityTTL bounds a session when the token response carries no
// expiry of its own.
const fallbackIdentityTTL = time.Hour

// ProviderConfig holds the relying-party settings for one IdP registration.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string // space-separated, e.g. "openid profile email"
	DiscoveryURL string
	HTTPClient   *http.Client // optional; a 30s-timeout client is used when nil
}

// Provider completes the authorization-code flow and maps the provider's
// claims onto a domain identity. It satisfies ports.AuthProvider.
type Provider struct {
	oauth      *oauth2.Config
	verifier   *gooidc.IDTokenVerifier
	relying    *gooidc.Provider
	httpClient *http.Client
}

// NewProvider discovers the IdP's endpoints once and builds the adapter.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	relying, err := gooidc.NewProvider(ctx, issuerFromDiscoveryURL(cfg.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     relying.Endpoint(),
		},
		verifier:   relying.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		relying:    relying,
		httpClient: httpClient,
	}, nil
}

// issuerFromDiscoveryURL strips the well-known suffix so operators can
// configure either the issuer or the full discovery document URL.
func issuerFromDiscoveryURL(u string) string {
	issuer := strings.TrimSuffix(u, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return strings.TrimSuffix(issuer, ".well-known/openid-configuration")
}

// Begin returns the provider authorization URL plus the state and nonce the
// caller must persist in the pending-login record for callback verification.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange redeems the authorization code, verifies the ID token against the
// stored nonce, and resolves the identity. Claims missing from the ID token
// are backfilled from the userinfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return domainauth.Identity{}, errors.New("state is required")
	}
	if in.Nonce == "" {
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	token, err := p.oauth.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	var claims standardClaims
	if slices.Contains(p.oauth.Scopes, "openid") {
		claims, err = p.verifyIDToken(ctx, token, in.Nonce)
		if err != nil {
			return domainauth.Identity{}, fmt.Errorf("verify id_token: %w", err)
		}
	}

	if claims.Subject == "" || claims.Email == "" {
		if err := p.mergeUserInfo(ctx, token, &claims); err != nil {
			return domainauth.Identity{}, fmt.Errorf("fetch userinfo: %w", err)
		}
	}

	expiresAt := time.Now().Add(fallbackIdentityTTL)
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}

	return domainauth.Identity{
		RemoteID:   claims.Subject,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Email:      claims.Email,
		ExpiresAt:  expiresAt,
	}, nil
}

// standardClaims is the subset of OIDC standard claims this service consumes,
// from either the ID token or the userinfo endpoint.
type standardClaims struct {
	Subject    string `json:"sub"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Nonce      string `json:"nonce"`
}

func (p *Provider) verifyIDToken(ctx context.Context, token *oauth2.Token, wantNonce string) (standardClaims, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return standardClaims{}, errors.New("missing id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return standardClaims{}, err
	}

	var claims standardClaims
	if err := idToken.Claims(&claims); err != nil {
		return standardClaims{}, fmt.Errorf("decode claims: %w", err)
	}
	if wantNonce != "" && claims.Nonce != wantNonce {
		return standardClaims{}, errors.New("nonce mismatch")
	}
	return claims, nil
}

// mergeUserInfo fills only the claims the ID token left empty.
func (p *Provider) mergeUserInfo(ctx context.Context, token *oauth2.Token, claims *standardClaims) error {
	info, err := p.relying.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return err
	}

	var extra standardClaims
	if err := info.Claims(&extra); err != nil {
		return fmt.Errorf("decode userinfo claims: %w", err)
	}

	if claims.Subject == "" {
		claims.Subject = extra.Subject
	}
	if claims.Email == "" {
		claims.Email = extra.Email
	}
	if claims.GivenName == "" {
		claims.GivenName = extra.GivenName
	}
	if claims.FamilyName == "" {
		claims.FamilyName = extra.FamilyName
	}
	return nil
}

// randomToken returns n random bytes as an unpadded URL-safe base64 string.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
