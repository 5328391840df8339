package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
)

func newKeyService(t *testing.T, repo *memKeyRepo) *KeyService {
	t.Helper()
	svc, err := NewKeyService(KeyServiceOptions{
		Repo: repo,
		Time: data.NewFixedTimeProvider(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return svc
}

func TestNewKeyService_DefaultsToWallClock(t *testing.T) {
	svc, err := NewKeyService(KeyServiceOptions{Repo: newMemKeyRepo()})
	require.NoError(t, err)
	require.NotNil(t, svc.time)
	assert.False(t, svc.time.Now().IsZero())
}

func keyOwner() *model.User {
	return &model.User{
		ID:          "bob-id",
		Handle:      "bob",
		Groups:      []string{"technicians"},
		Permissions: grants(model.PermissionCreateSample, model.PermissionUploadFile),
	}
}

func TestKeyService_Create(t *testing.T) {
	repo := newMemKeyRepo()
	svc := newKeyService(t, repo)

	result, err := svc.Create(context.Background(), keyOwner(), model.CreateKeyRequest{
		Name:        "My CI Key",
		Permissions: grants(model.PermissionCreateSample),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Secret)
	assert.Equal(t, "my_ci_key_1", result.Key.Prefix)
	assert.Equal(t, []string{"technicians"}, result.Key.Groups)
	assert.True(t, result.Key.Permissions[model.PermissionCreateSample])
	assert.False(t, result.Key.Permissions[model.PermissionUploadFile])
}

func TestKeyService_CreateCapsAtOwnerPermissions(t *testing.T) {
	repo := newMemKeyRepo()
	svc := newKeyService(t, repo)

	// remove_job is requested but the owner does not hold it
	result, err := svc.Create(context.Background(), keyOwner(), model.CreateKeyRequest{
		Name:        "Overreach",
		Permissions: grants(model.PermissionCreateSample, model.PermissionRemoveJob),
	})
	require.NoError(t, err)
	assert.True(t, result.Key.Permissions[model.PermissionCreateSample])
	assert.False(t, result.Key.Permissions[model.PermissionRemoveJob], "grant beyond owner is dropped")
}

func TestKeyService_CreateNumbersDuplicateNames(t *testing.T) {
	repo := newMemKeyRepo()
	svc := newKeyService(t, repo)
	owner := keyOwner()
	ctx := context.Background()

	first, err := svc.Create(ctx, owner, model.CreateKeyRequest{Name: "Backup"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, owner, model.CreateKeyRequest{Name: "Backup"})
	require.NoError(t, err)

	assert.Equal(t, "backup_1", first.Key.Prefix)
	assert.Equal(t, "backup_2", second.Key.Prefix)
}

func TestKeyService_CreateInvalidName(t *testing.T) {
	svc := newKeyService(t, newMemKeyRepo())

	_, err := svc.Create(context.Background(), keyOwner(), model.CreateKeyRequest{Name: ""})
	assert.True(t, apperrors.IsValidation(err))
}

func TestKeyService_Authenticate(t *testing.T) {
	repo := newMemKeyRepo()
	svc := newKeyService(t, repo)
	ctx := context.Background()

	result, err := svc.Create(ctx, keyOwner(), model.CreateKeyRequest{Name: "Worker"})
	require.NoError(t, err)

	key, err := svc.Authenticate(ctx, result.Secret)
	require.NoError(t, err)
	assert.Equal(t, result.Key.ID, key.ID)

	_, err = svc.Authenticate(ctx, "not-a-real-secret")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestKeyService_GetForUserEnforcesOwnership(t *testing.T) {
	repo := newMemKeyRepo(&model.Key{ID: "k1", UserID: "bob-id", Permissions: model.NoPermissions()})
	svc := newKeyService(t, repo)
	ctx := context.Background()

	key, err := svc.GetForUser(ctx, "bob-id", "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1", key.ID)

	_, err = svc.GetForUser(ctx, "carol-id", "k1")
	assert.True(t, apperrors.IsNotFound(err), "foreign key looks missing")

	_, err = svc.GetForUser(ctx, "bob-id", "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestKeyService_UpdateCapsPermissions(t *testing.T) {
	repo := newMemKeyRepo(&model.Key{ID: "k1", UserID: "bob-id", Permissions: model.NoPermissions()})
	svc := newKeyService(t, repo)

	updated, err := svc.Update(context.Background(), keyOwner(), "k1", model.UpdateKeyRequest{
		Permissions: grants(model.PermissionUploadFile, model.PermissionModifyHMM),
	})
	require.NoError(t, err)
	assert.True(t, updated.Permissions[model.PermissionUploadFile])
	assert.False(t, updated.Permissions[model.PermissionModifyHMM], "grant beyond owner is dropped")
}

func TestKeyService_Delete(t *testing.T) {
	repo := newMemKeyRepo(&model.Key{ID: "k1", UserID: "bob-id", Permissions: model.NoPermissions()})
	svc := newKeyService(t, repo)
	ctx := context.Background()

	require.Error(t, svc.Delete(ctx, "carol-id", "k1"), "foreign owner cannot delete")

	require.NoError(t, svc.Delete(ctx, "bob-id", "k1"))
	_, err := repo.GetByID(ctx, "k1")
	assert.ErrorIs(t, err, data.ErrKeyNotFound)
}
