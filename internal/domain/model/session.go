package model

import "time"

// Session is the server-side record persisted for an authenticated browser
// login. ID is an opaque session identifier.
//
// Administrator, Groups, and Permissions are snapshots of the owning user's
// authorization state as of the last propagation. Sessions track the user's
// current entitlement exactly: propagation replaces the permission map
// outright.
type Session struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Administrator bool          `json:"administrator"`
	Groups        []string      `json:"groups"`
	Permissions   PermissionSet `json:"permissions"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

// AuthorizationUpdate carries the owning user's final authorization state
// for fan-out to session and key records after a user edit.
type AuthorizationUpdate struct {
	Administrator bool
	Groups        []string
	Permissions   PermissionSet
}
