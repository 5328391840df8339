package model

import (
	"errors"
	"strings"
	"time"
)

// PrimaryGroupNone is the sentinel meaning "no primary group selected".
// Stored verbatim so existing documents keep their historical shape.
const PrimaryGroupNone = "none"

// User is an account that owns samples, uploads, and analysis jobs.
//
// Permissions is the user's effective permission set: the OR-merge of the
// permissions of every group in Groups. It is recomputed whenever group
// membership changes and is the source of truth for authorization snapshots
// on sessions and API keys.
type User struct {
	ID                 string        `json:"id"                   db:"id"`
	Handle             string        `json:"handle"               db:"handle"`
	Administrator      bool          `json:"administrator"        db:"administrator"`
	Groups             []string      `json:"groups"               db:"groups"`
	PrimaryGroup       string        `json:"primary_group"        db:"primary_group"`
	Permissions        PermissionSet `json:"permissions"          db:"permissions"`
	Password           []byte        `json:"-"                    db:"password"`
	ForceReset         bool          `json:"force_reset"          db:"force_reset"`
	InvalidateSessions bool          `json:"-"                    db:"invalidate_sessions"`
	LastPasswordChange time.Time     `json:"last_password_change" db:"last_password_change"`
	RemoteID           string        `json:"-"                    db:"remote_id"`
	CreatedAt          time.Time     `json:"created_at"           db:"created_at"`
}

// MemberOf returns true if groupID is among the user's groups.
func (u *User) MemberOf(groupID string) bool {
	for _, id := range u.Groups {
		if id == groupID {
			return true
		}
	}
	return false
}

// CreateUserRequest carries parameters for creating a user with local credentials.
type CreateUserRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
	// ForceReset defaults to true: newly provisioned accounts must set
	// their own password on first login.
	ForceReset *bool `json:"force_reset,omitempty"`
}

const minPasswordLength = 8

// Validate validates the CreateUserRequest fields.
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Handle) == "" {
		return errors.New("handle is required")
	}
	if len(r.Password) < minPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// UpdateUserRequest carries a requested set of changes to a user.
//
// Every field is optional; a nil field means "no change requested". The
// Groups field distinguishes absent (nil) from "replace with the empty
// list" (&[]string{}), which clears membership and denies every permission.
type UpdateUserRequest struct {
	Administrator *bool     `json:"administrator,omitempty"`
	ForceReset    *bool     `json:"force_reset,omitempty"`
	Groups        *[]string `json:"groups,omitempty"`
	Password      *string   `json:"password,omitempty"`
	PrimaryGroup  *string   `json:"primary_group,omitempty"`
}

// IsZero returns true when the request asks for no changes at all.
func (r *UpdateUserRequest) IsZero() bool {
	return r.Administrator == nil &&
		r.ForceReset == nil &&
		r.Groups == nil &&
		r.Password == nil &&
		r.PrimaryGroup == nil
}

// UserUpdate is a typed partial update for a user document. Nil fields are
// left untouched by the repository; each sub-composer owns a disjoint set
// of fields so partial updates merge without collisions.
type UserUpdate struct {
	Administrator      *bool
	ForceReset         *bool
	InvalidateSessions *bool
	Groups             *[]string
	Permissions        PermissionSet
	PrimaryGroup       *string
	Password           []byte
	LastPasswordChange *time.Time
}

// IsZero returns true when the update would not change any field.
func (u *UserUpdate) IsZero() bool {
	return u.Administrator == nil &&
		u.ForceReset == nil &&
		u.InvalidateSessions == nil &&
		u.Groups == nil &&
		u.Permissions == nil &&
		u.PrimaryGroup == nil &&
		u.Password == nil &&
		u.LastPasswordChange == nil
}

// Merge combines other into the receiver. Fields set in other win; this is
// safe because each sub-composer owns a disjoint field set.
func (u *UserUpdate) Merge(other UserUpdate) {
	if other.Administrator != nil {
		u.Administrator = other.Administrator
	}
	if other.ForceReset != nil {
		u.ForceReset = other.ForceReset
	}
	if other.InvalidateSessions != nil {
		u.InvalidateSessions = other.InvalidateSessions
	}
	if other.Groups != nil {
		u.Groups = other.Groups
	}
	if other.Permissions != nil {
		u.Permissions = other.Permissions
	}
	if other.PrimaryGroup != nil {
		u.PrimaryGroup = other.PrimaryGroup
	}
	if other.Password != nil {
		u.Password = other.Password
	}
	if other.LastPasswordChange != nil {
		u.LastPasswordChange = other.LastPasswordChange
	}
}

// Apply writes the update's set fields onto the user in place.
func (u *UserUpdate) Apply(user *User) {
	if u.Administrator != nil {
		user.Administrator = *u.Administrator
	}
	if u.ForceReset != nil {
		user.ForceReset = *u.ForceReset
	}
	if u.InvalidateSessions != nil {
		user.InvalidateSessions = *u.InvalidateSessions
	}
	if u.Groups != nil {
		user.Groups = append([]string(nil), (*u.Groups)...)
	}
	if u.Permissions != nil {
		user.Permissions = u.Permissions.Clone()
	}
	if u.PrimaryGroup != nil {
		user.PrimaryGroup = *u.PrimaryGroup
	}
	if u.Password != nil {
		user.Password = append([]byte(nil), u.Password...)
	}
	if u.LastPasswordChange != nil {
		user.LastPasswordChange = *u.LastPasswordChange
	}
}
