// Package devauth fakes the SSO flow for local development. Begin redirects
// straight back to the service's own callback and Exchange hands out a
// fixed identity from configuration, so no identity provider is needed.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/seqdepot/seqdepot/internal/domain/auth"
	"github.com/seqdepot/seqdepot/internal/ports"
)

const (
	defaultSessionDuration = 8 * time.Hour
	// refreshWindow renews the fake identity's expiry when a login happens
	// close to it, so long dev sessions do not expire mid-use.
	refreshWindow = 5 * time.Minute
)

// Config is the fixed identity handed to every login.
type Config struct {
	RemoteID        string
	GivenName       string
	FamilyName      string
	Email           string
	SessionDuration time.Duration // defaultSessionDuration when zero
}

// Provider satisfies ports.AuthProvider with the configured identity.
type Provider struct {
	identity        domainauth.Identity
	sessionDuration time.Duration
}

// NewProvider validates the configured identity and builds the provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.RemoteID == "" {
		return nil, errors.New("dev auth: RemoteID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}

	dur := cfg.SessionDuration
	if dur <= 0 {
		dur = defaultSessionDuration
	}
	return &Provider{
		identity: domainauth.Identity{
			RemoteID:   cfg.RemoteID,
			GivenName:  cfg.GivenName,
			FamilyName: cfg.FamilyName,
			Email:      cfg.Email,
			ExpiresAt:  time.Now().Add(dur),
		},
		sessionDuration: dur,
	}, nil
}

// Begin points the browser at our own callback with a fresh state and nonce,
// keeping the handler's state verification path identical to real SSO.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomToken(18)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(18)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	return "/auth/callback?code=dev&state=" + state, state, nonce, nil
}

// Exchange returns the configured identity regardless of code and nonce.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	if time.Until(p.identity.ExpiresAt) < refreshWindow {
		p.identity.ExpiresAt = time.Now().Add(p.sessionDuration)
	}
	return p.identity, nil
}

// randomToken returns n random bytes as unpadded URL-safe base64.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
