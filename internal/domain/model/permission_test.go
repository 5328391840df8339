package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionSetNormalize(t *testing.T) {
	set := PermissionSet{
		PermissionCreateSample:    true,
		Permission("made_up_name"): true,
	}

	normalized := set.Normalize()

	assert.Len(t, normalized, len(AllPermissions()))
	assert.True(t, normalized[PermissionCreateSample])
	assert.False(t, normalized[PermissionCancelJob])
	_, hasUnknown := normalized[Permission("made_up_name")]
	assert.False(t, hasUnknown)

	// receiver untouched
	assert.True(t, set[Permission("made_up_name")])
}

func TestMergeGroupPermissions(t *testing.T) {
	technicians := &Group{
		ID:          "technicians",
		Permissions: PermissionSet{PermissionCreateSample: true, PermissionUploadFile: true},
	}
	curators := &Group{
		ID:          "curators",
		Permissions: PermissionSet{PermissionCreateRef: true},
	}

	merged := MergeGroupPermissions([]*Group{technicians, nil, curators})

	assert.True(t, merged[PermissionCreateSample])
	assert.True(t, merged[PermissionUploadFile])
	assert.True(t, merged[PermissionCreateRef])
	assert.False(t, merged[PermissionModifyHMM])
}

func TestMergeGroupPermissionsEmpty(t *testing.T) {
	merged := MergeGroupPermissions(nil)

	assert.Len(t, merged, len(AllPermissions()))
	for _, p := range AllPermissions() {
		assert.False(t, merged[p])
	}
}

func TestReplacePermissions(t *testing.T) {
	current := PermissionSet{PermissionCancelJob: true}
	target := PermissionSet{PermissionCreateSample: true}

	out := ReplacePermissions(current, target)

	assert.True(t, out[PermissionCreateSample])
	assert.False(t, out[PermissionCancelJob])
}

func TestRatchetPermissionsNeverTurnsOn(t *testing.T) {
	current := PermissionSet{PermissionCreateSample: true, PermissionCancelJob: true}
	target := PermissionSet{PermissionCreateSample: true, PermissionUploadFile: true}

	out := RatchetPermissions(current, target)

	// kept: granted on both
	assert.True(t, out[PermissionCreateSample])
	// revoked: denied by target
	assert.False(t, out[PermissionCancelJob])
	// never granted just because the target has it
	assert.False(t, out[PermissionUploadFile])
}

func TestRatchetPermissionsIdempotent(t *testing.T) {
	current := PermissionSet{PermissionCreateSample: true, PermissionRemoveFile: true}
	target := PermissionSet{PermissionCreateSample: true}

	once := RatchetPermissions(current, target)
	twice := RatchetPermissions(once, target)

	assert.Equal(t, once, twice)
}
