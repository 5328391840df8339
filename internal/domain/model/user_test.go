package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUpdateUserRequestIsZero(t *testing.T) {
	assert.True(t, (&UpdateUserRequest{}).IsZero())

	admin := true
	assert.False(t, (&UpdateUserRequest{Administrator: &admin}).IsZero())

	// an explicitly empty group list is a change, not an absent field
	empty := []string{}
	assert.False(t, (&UpdateUserRequest{Groups: &empty}).IsZero())
}

func TestUserUpdateMergeDisjointFields(t *testing.T) {
	force := true
	invalidate := true
	groups := []string{"technicians"}

	var update UserUpdate
	update.Merge(UserUpdate{ForceReset: &force, InvalidateSessions: &invalidate})
	update.Merge(UserUpdate{
		Groups:      &groups,
		Permissions: PermissionSet{PermissionCreateSample: true},
	})

	assert.True(t, *update.ForceReset)
	assert.True(t, *update.InvalidateSessions)
	assert.Equal(t, []string{"technicians"}, *update.Groups)
	assert.True(t, update.Permissions[PermissionCreateSample])
}

func TestUserUpdateApply(t *testing.T) {
	user := User{
		ID:           "bob",
		Groups:       []string{"technicians", "curators"},
		PrimaryGroup: "technicians",
		Permissions:  PermissionSet{PermissionCreateSample: true}.Normalize(),
	}

	empty := []string{}
	primary := PrimaryGroupNone
	changed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	update := UserUpdate{
		Groups:             &empty,
		Permissions:        NoPermissions(),
		PrimaryGroup:       &primary,
		Password:           []byte("hashed"),
		LastPasswordChange: &changed,
	}
	update.Apply(&user)

	assert.Empty(t, user.Groups)
	assert.False(t, user.Permissions[PermissionCreateSample])
	assert.Equal(t, PrimaryGroupNone, user.PrimaryGroup)
	assert.Equal(t, []byte("hashed"), user.Password)
	assert.Equal(t, changed, user.LastPasswordChange)
}

func TestUserUpdateApplyCopies(t *testing.T) {
	groups := []string{"technicians"}
	update := UserUpdate{Groups: &groups}

	var user User
	update.Apply(&user)

	groups[0] = "mutated"
	assert.Equal(t, []string{"technicians"}, user.Groups)
}

func TestCreateUserRequestValidate(t *testing.T) {
	req := CreateUserRequest{Handle: "bob", Password: "hunter2hunter2"}
	assert.NoError(t, req.Validate())

	req = CreateUserRequest{Handle: " ", Password: "hunter2hunter2"}
	assert.Error(t, req.Validate())

	req = CreateUserRequest{Handle: "bob", Password: "short"}
	assert.Error(t, req.Validate())
}

func TestUserMemberOf(t *testing.T) {
	user := User{Groups: []string{"technicians"}}

	assert.True(t, user.MemberOf("technicians"))
	assert.False(t, user.MemberOf("curators"))
}
