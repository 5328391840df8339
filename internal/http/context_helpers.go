package httpx

import (
	"context"

	"github.com/seqdepot/seqdepot/internal/domain/model"
)

// Identity is the authenticated caller attached to a request context. It is
// derived from either a browser session or an API key; exactly one of
// SessionID and KeyID is set.
type Identity struct {
	UserID        string
	Administrator bool
	Permissions   model.PermissionSet
	SessionID     string
	KeyID         string
}

// Can reports whether the identity holds the given permission.
// Administrators hold every permission implicitly.
func (i *Identity) Can(p model.Permission) bool {
	if i == nil {
		return false
	}
	return i.Administrator || i.Permissions[p]
}

// identityKey is an unexported context key type to avoid collisions across packages.
type identityKey struct{}

// SetIdentityInContext returns a child context that carries the given identity.
// If identity is nil, the original ctx is returned unchanged.
func SetIdentityInContext(ctx context.Context, identity *Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity and a boolean indicating presence.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if identity, ok := ctx.Value(identityKey{}).(*Identity); ok && identity != nil {
		return identity, true
	}
	return nil, false
}
