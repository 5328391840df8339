package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seqdepot/seqdepot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIdP serves a minimal discovery document so NewProvider can complete
// its single discovery fetch without a real identity provider.
func fakeIdP(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"issuer": %q,
			"authorization_endpoint": "https://idp.test/auth",
			"token_endpoint": "https://idp.test/token",
			"userinfo_endpoint": "https://idp.test/userinfo",
			"jwks_uri": "https://idp.test/jwks"
		}`, srv.URL)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	idp := fakeIdP(t)
	provider, err := NewProvider(ProviderConfig{
		ClientID:     "seqdepot-web",
		ClientSecret: "hunter2",
		RedirectURL:  "http://localhost:9950/account/login/callback",
		Scope:        "openid profile email",
		DiscoveryURL: idp.URL,
	})
	require.NoError(t, err)
	return provider
}

func TestNewProviderDiscoversEndpoints(t *testing.T) {
	provider := newTestProvider(t)

	assert.Equal(t, "https://idp.test/auth", provider.oauth.Endpoint.AuthURL)
	assert.Equal(t, "https://idp.test/token", provider.oauth.Endpoint.TokenURL)

	var _ ports.AuthProvider = provider
}

func TestNewProviderRejectsIncompleteConfig(t *testing.T) {
	base := ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		DiscoveryURL: "http://idp.test",
	}

	tests := []struct {
		name   string
		mutate func(*ProviderConfig)
		errMsg string
	}{
		{"missing client ID", func(c *ProviderConfig) { c.ClientID = "" }, "client ID is required"},
		{"missing client secret", func(c *ProviderConfig) { c.ClientSecret = "" }, "client secret is required"},
		{"missing redirect URL", func(c *ProviderConfig) { c.RedirectURL = "" }, "redirect URL is required"},
		{"missing discovery URL", func(c *ProviderConfig) { c.DiscoveryURL = "" }, "discovery URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := NewProvider(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestIssuerFromDiscoveryURL(t *testing.T) {
	for raw, want := range map[string]string{
		"https://idp.test":                                      "https://idp.test",
		"https://idp.test/":                                     "https://idp.test",
		"https://idp.test/.well-known/openid-configuration":     "https://idp.test",
		"https://idp.test/realms/x/.well-known/openid-configuration": "https://idp.test/realms/x",
	} {
		assert.Equal(t, want, issuerFromDiscoveryURL(raw), raw)
	}
}

func TestBeginBuildsAuthorizationURL(t *testing.T) {
	provider := newTestProvider(t)

	authURL, state, nonce, err := provider.Begin(context.Background(), ports.BeginInput{
		RedirectURL: "http://localhost:9950/account/login/callback",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)
	assert.NotEqual(t, state, nonce)
	assert.Contains(t, authURL, "https://idp.test/auth")
	assert.Contains(t, authURL, "client_id=seqdepot-web")
	assert.Contains(t, authURL, "state="+state)
	assert.Contains(t, authURL, "nonce="+nonce)
	assert.Contains(t, authURL, "prompt=select_account")
}

func TestBeginRequiresRedirectURL(t *testing.T) {
	provider := newTestProvider(t)

	_, _, _, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect URL is required")
}

func TestExchangeRejectsIncompleteCallback(t *testing.T) {
	provider := newTestProvider(t)

	tests := []struct {
		name   string
		input  ports.ExchangeInput
		errMsg string
	}{
		{"missing code", ports.ExchangeInput{State: "s", Nonce: "n"}, "authorization code is required"},
		{"missing state", ports.ExchangeInput{Code: "c", Nonce: "n"}, "state is required"},
		{"missing nonce", ports.ExchangeInput{Code: "c", State: "s"}, "nonce is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.Exchange(context.Background(), tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestExchangeFailsAgainstUnreachableTokenEndpoint(t *testing.T) {
	provider := newTestProvider(t)

	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{
		Code: "code", State: "state", Nonce: "nonce",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange code for token")
}

func TestRandomToken(t *testing.T) {
	a, err := randomToken(32)
	require.NoError(t, err)
	b, err := randomToken(32)
	require.NoError(t, err)

	// 32 bytes encode to 43 unpadded base64 characters.
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
