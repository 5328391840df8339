package devauth

import (
	"context"
	"testing"
	"time"

	"github.com/seqdepot/seqdepot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderRequiresIdentity(t *testing.T) {
	_, err := NewProvider(Config{Email: "dev@example.com"})
	require.ErrorContains(t, err, "RemoteID is required")

	_, err = NewProvider(Config{RemoteID: "dev-user"})
	require.ErrorContains(t, err, "Email is required")
}

func TestLoginRoundTrip(t *testing.T) {
	prov, err := NewProvider(Config{
		RemoteID:   "dev-user",
		GivenName:  "Dev",
		FamilyName: "User",
		Email:      "dev@example.com",
	})
	require.NoError(t, err)

	var _ ports.AuthProvider = prov

	authURL, state, nonce, err := prov.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Contains(t, authURL, "/auth/callback?code=dev&state="+state)
	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)
	assert.NotEqual(t, state, nonce)

	id, err := prov.Exchange(context.Background(), ports.ExchangeInput{Code: "dev", State: state, Nonce: nonce})
	require.NoError(t, err)
	assert.Equal(t, "dev-user", id.RemoteID)
	assert.Equal(t, "dev@example.com", id.Email)
	assert.Greater(t, id.ExpiresAt, time.Now())
}

func TestExchangeRenewsNearExpiry(t *testing.T) {
	prov, err := NewProvider(Config{
		RemoteID:        "dev-user",
		Email:           "dev@example.com",
		SessionDuration: time.Minute, // within the refresh window
	})
	require.NoError(t, err)

	first, err := prov.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)

	second, err := prov.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.False(t, second.ExpiresAt.Before(first.ExpiresAt))
}
