package auth

// Package auth contains domain-level types for authentication identities.
// It is pure and free of framework/adapter concerns.

import "time"

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape. RemoteID is the
// stable provider identifier (e.g., the OIDC sub claim); it is the join key
// between an identity and a local user account.
type Identity struct {
	RemoteID   string
	GivenName  string
	FamilyName string
	Email      string
	ExpiresAt  time.Time // absolute expiry from IdP token
}
