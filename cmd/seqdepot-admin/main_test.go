package main

import (
	"bytes"
	"testing"

	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateUserFlags(t *testing.T) {
	opts, err := parseCreateUserFlags([]string{
		"-handle", "jcurtis",
		"-password", "hunter22hunter22",
		"-admin",
		"-groups", "technicians, analysts",
		"-primary-group", "analysts",
	})
	require.NoError(t, err)

	assert.Equal(t, "jcurtis", opts.Handle)
	assert.True(t, opts.Administrator)
	assert.Equal(t, []string{"technicians", "analysts"}, opts.Groups)
	assert.Equal(t, "analysts", opts.PrimaryGroup)
	assert.False(t, opts.NoForceReset)
}

func TestParseCreateUserFlagsRejectsBadInput(t *testing.T) {
	_, err := parseCreateUserFlags([]string{"-password", "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--handle is required")

	_, err = parseCreateUserFlags([]string{"-handle", "a", "-password", "x", "-primary-group", "ghosts"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--primary-group")
}

func TestIsLikelyRemoteHost(t *testing.T) {
	assert.False(t, isLikelyRemoteHost("localhost"))
	assert.False(t, isLikelyRemoteHost("127.0.0.1"))
	assert.False(t, isLikelyRemoteHost("::1"))
	assert.False(t, isLikelyRemoteHost("workstation.local"))
	assert.False(t, isLikelyRemoteHost(""))
	assert.True(t, isLikelyRemoteHost("db.prod.example.com"))
	assert.True(t, isLikelyRemoteHost("10.40.2.11"))
}

func TestPrintUserTable(t *testing.T) {
	perms := model.NoPermissions()
	perms[model.PermissionCreateSample] = true
	perms[model.PermissionUploadFile] = true

	var buf bytes.Buffer
	err := printUserTable(&buf, []*model.User{
		{
			ID:          "user-1",
			Handle:      "tech",
			Groups:      []string{"technicians"},
			Permissions: perms,
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "HANDLE")
	assert.Contains(t, out, "tech")
	assert.Contains(t, out, "technicians")
	assert.Contains(t, out, "create_sample,upload_file")
}
