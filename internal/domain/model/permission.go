// Package model defines the core data types and structures used throughout the seqdepot sample-management system.
package model

// Permission is a named capability that gates an API operation.
//
// The permission set is fixed: every user, group, session, and API key
// carries a total map over these names.
type Permission string

const (
	PermissionCancelJob         Permission = "cancel_job"
	PermissionCreateRef         Permission = "create_ref"
	PermissionCreateSample      Permission = "create_sample"
	PermissionModifyHMM         Permission = "modify_hmm"
	PermissionModifySubtraction Permission = "modify_subtraction"
	PermissionRemoveFile        Permission = "remove_file"
	PermissionRemoveJob         Permission = "remove_job"
	PermissionUploadFile        Permission = "upload_file"
)

// AllPermissions returns every defined permission name in stable order.
func AllPermissions() []Permission {
	return []Permission{
		PermissionCancelJob,
		PermissionCreateRef,
		PermissionCreateSample,
		PermissionModifyHMM,
		PermissionModifySubtraction,
		PermissionRemoveFile,
		PermissionRemoveJob,
		PermissionUploadFile,
	}
}

// Valid returns true if the Permission is one of the defined names.
func (p Permission) Valid() bool {
	for _, known := range AllPermissions() {
		if p == known {
			return true
		}
	}
	return false
}

// PermissionSet maps each permission name to whether it is granted.
// A normalized set is total: it has an entry for every defined permission.
type PermissionSet map[Permission]bool

// NoPermissions returns a total set with every permission denied.
func NoPermissions() PermissionSet {
	set := make(PermissionSet, len(AllPermissions()))
	for _, p := range AllPermissions() {
		set[p] = false
	}
	return set
}

// Normalize returns a total copy of the set: unknown names are dropped and
// missing names default to false. The receiver is not modified.
func (s PermissionSet) Normalize() PermissionSet {
	out := NoPermissions()
	for _, p := range AllPermissions() {
		if s[p] {
			out[p] = true
		}
	}
	return out
}

// Clone returns a total copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	return s.Normalize()
}

// MergeGroupPermissions computes the effective permissions across groups:
// the boolean OR, per permission name, of every group's permissions.
// An empty group list yields a set with every permission denied.
func MergeGroupPermissions(groups []*Group) PermissionSet {
	merged := NoPermissions()
	for _, group := range groups {
		if group == nil {
			continue
		}
		for _, p := range AllPermissions() {
			if group.Permissions[p] {
				merged[p] = true
			}
		}
	}
	return merged
}

// ReplacePermissions returns the target set verbatim (normalized). It is the
// propagation rule for sessions, which track the owning user's current
// entitlement exactly.
func ReplacePermissions(_, target PermissionSet) PermissionSet {
	return target.Normalize()
}

// RatchetPermissions returns the current set with every permission denied by
// the target turned off. A permission is never turned on by this rule: it is
// the propagation rule for API keys, whose grant is capped at issuance time.
func RatchetPermissions(current, target PermissionSet) PermissionSet {
	out := current.Normalize()
	for _, p := range AllPermissions() {
		if !target[p] {
			out[p] = false
		}
	}
	return out
}
