package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOIDC uses an external OIDC identity provider for browser login.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModePassword uses local handle/password credentials only.
	AuthModePassword AuthMode = "password"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "password", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, password, mock)", v)
	}
}

// OIDCConfig contains OIDC/OAuth2 configuration for browser sign-in.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:9950/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	RemoteID   string `env:"REMOTE_ID"   envDefault:"dev-user"`
	Email      string `env:"EMAIL"       envDefault:"dev@example.com"`
	GivenName  string `env:"GIVEN_NAME"  envDefault:"dev"`
	FamilyName string `env:"FAMILY_NAME" envDefault:"user"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider backs browser login.
	// Password login is always available regardless of mode.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SessionDuration is the lifetime of a browser session.
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
}
