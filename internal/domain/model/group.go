package model

import (
	"errors"
	"regexp"
	"time"
)

// Group names a set of permissions that member users inherit.
type Group struct {
	ID          string        `json:"id"          db:"id"`
	Permissions PermissionSet `json:"permissions" db:"permissions"`
	CreatedAt   time.Time     `json:"created_at"  db:"created_at"`
}

var groupIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// CreateGroupRequest carries parameters for creating a group.
type CreateGroupRequest struct {
	ID string `json:"group_id"`
}

// Validate validates the CreateGroupRequest fields.
func (r *CreateGroupRequest) Validate() error {
	if !groupIDPattern.MatchString(r.ID) {
		return errors.New("group id must be lowercase alphanumeric with dashes or underscores")
	}
	return nil
}

// UpdateGroupRequest carries a sparse permission update for a group.
// Only the named permissions change; the rest keep their current values.
type UpdateGroupRequest struct {
	Permissions PermissionSet `json:"permissions"`
}

// Validate rejects unknown permission names.
func (r *UpdateGroupRequest) Validate() error {
	for name := range r.Permissions {
		if !name.Valid() {
			return errors.New("unknown permission: " + string(name))
		}
	}
	return nil
}
