package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/seqdepot/seqdepot/internal/domain/auth"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SessionStore persists and retrieves user sessions.
//
// Stores index sessions by owning user so that a user edit can rewrite or
// revoke every live session without scanning the keyspace.
type SessionStore interface {
	Save(ctx context.Context, sess model.Session) error
	Get(ctx context.Context, id string) (model.Session, error)
	Delete(ctx context.Context, id string) error

	// DeleteForUser revokes every session owned by the user and returns
	// how many were removed.
	DeleteForUser(ctx context.Context, userID string) (int, error)

	// UpdateAuthorizationForUser replaces the authorization snapshot on
	// every session owned by the user and returns how many were rewritten.
	// Session permissions track the user exactly, so the snapshot is
	// applied verbatim.
	UpdateAuthorizationForUser(ctx context.Context, userID string, update model.AuthorizationUpdate) (int, error)
}
