package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/seqdepot/seqdepot/config"
	"github.com/seqdepot/seqdepot/internal/adapters/devauth"
	"github.com/seqdepot/seqdepot/internal/adapters/oidc"
	redisadapter "github.com/seqdepot/seqdepot/internal/adapters/redis"
	"github.com/seqdepot/seqdepot/internal/ports"
	"github.com/seqdepot/seqdepot/internal/service"
)

// AuthConfig contains configuration for the auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	Users       *service.UserService
	Logger      *slog.Logger
}

// BuildAuthService creates the auth service for the configured auth mode.
// Password login always works; the SSO flow is wired only when an identity
// provider is configured.
func BuildAuthService(cfg AuthConfig) (*service.AuthService, error) {
	if cfg.RedisClient == nil {
		return nil, fmt.Errorf("auth service requires a redis client for the session store")
	}

	sessionStore := redisadapter.NewSessionStore(cfg.RedisClient)

	provider, err := buildAuthProvider(cfg)
	if err != nil {
		return nil, err
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Users:           cfg.Users,
		Sessions:        sessionStore,
		Provider:        provider,
		SessionDuration: cfg.Auth.SessionDuration,
		Logger:          cfg.Logger,
	})
}

//nolint:ireturn // the provider is selected at runtime from configuration.
func buildAuthProvider(cfg AuthConfig) (ports.AuthProvider, error) {
	switch cfg.Auth.Mode {
	case config.AuthModePassword:
		return nil, nil

	case config.AuthModeMock:
		provider, err := devauth.NewProvider(devauth.Config{
			RemoteID:        cfg.Auth.DevAuth.RemoteID,
			GivenName:       cfg.Auth.DevAuth.GivenName,
			FamilyName:      cfg.Auth.DevAuth.FamilyName,
			Email:           cfg.Auth.DevAuth.Email,
			SessionDuration: cfg.Auth.SessionDuration,
		})
		if err != nil {
			return nil, fmt.Errorf("create dev auth provider: %w", err)
		}
		return provider, nil

	case config.AuthModeOIDC:
		oc := cfg.Auth.OIDC
		if oc.DiscoveryURL == "" || oc.ClientID == "" || oc.ClientSecret == "" {
			return nil, fmt.Errorf(
				"AUTH_MODE=oidc requires OIDC_DISCOVERY_URL, OIDC_CLIENT_ID, and OIDC_CLIENT_SECRET")
		}
		provider, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     oc.ClientID,
			ClientSecret: oc.ClientSecret,
			RedirectURL:  oc.RedirectURL,
			Scope:        oc.Scope,
			DiscoveryURL: oc.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create OIDC provider: %w", err)
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown auth mode: %q", cfg.Auth.Mode)
	}
}
