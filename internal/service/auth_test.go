package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqdepot/seqdepot/internal/data"
	domainauth "github.com/seqdepot/seqdepot/internal/domain/auth"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
	mockauth "github.com/seqdepot/seqdepot/internal/mocks/auth"
	"github.com/seqdepot/seqdepot/internal/ports"
)

type authFixture struct {
	svc      *AuthService
	users    *userFixture
	provider *mockauth.MockAuthProvider
	clock    *data.FixedTimeProvider
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	uf := newUserFixture(t, nil, nil)

	provider := mockauth.NewMockAuthProvider()
	svc, err := NewAuthService(AuthServiceOptions{
		Users:           uf.svc,
		Sessions:        uf.sessions,
		Provider:        provider,
		SessionDuration: time.Hour,
		Time:            uf.clock,
	})
	require.NoError(t, err)

	return &authFixture{svc: svc, users: uf, provider: provider, clock: uf.clock}
}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	_, err := NewAuthService(AuthServiceOptions{Sessions: mockauth.NewMemorySessionStore()})
	assert.Error(t, err)

	uf := newUserFixture(t, nil, nil)
	_, err = NewAuthService(AuthServiceOptions{Users: uf.svc})
	assert.Error(t, err)
}

func TestNewAuthService_DefaultsToWallClock(t *testing.T) {
	uf := newUserFixture(t, nil, nil)
	svc, err := NewAuthService(AuthServiceOptions{Users: uf.svc, Sessions: uf.sessions})
	require.NoError(t, err)
	require.NotNil(t, svc.time)
	assert.False(t, svc.time.Now().IsZero())
}

func TestAuthService_LoginWithPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	off := false
	_, err := f.users.svc.Create(ctx, model.CreateUserRequest{
		Handle: "bob", Password: "hunter2hunter2", ForceReset: &off,
	})
	require.NoError(t, err)

	result, err := f.svc.LoginWithPassword(ctx, "bob", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, result.Session.UserID)
	assert.Equal(t, f.clock.Now().Add(time.Hour), result.Session.ExpiresAt)

	stored := f.users.sessions.All()[result.Session.ID]
	assert.Equal(t, result.Session.UserID, stored.UserID)
}

func TestAuthService_LoginWithPasswordRejected(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.LoginWithPassword(context.Background(), "bob", "wrong")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_LoginSessionSnapshotsAuthorization(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.users.seedUser(t, &model.User{
		ID: "u1", Handle: "bob",
		Administrator: true,
		Groups:        []string{"kings"},
		Permissions:   grants(model.PermissionCreateSample),
	})

	result, err := f.svc.openSession(ctx, user, f.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, result.Session.Administrator)
	assert.Equal(t, []string{"kings"}, result.Session.Groups)
	assert.True(t, result.Session.Permissions[model.PermissionCreateSample])
}

func TestAuthService_BeginSSOLogin(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.svc.BeginSSOLogin(context.Background(), "https://app/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", result.AuthURL)
	assert.NotEmpty(t, result.State)
	assert.NotEmpty(t, result.Nonce)

	_, err = f.svc.BeginSSOLogin(context.Background(), "")
	assert.Error(t, err)
}

func TestAuthService_CompleteSSOLoginCreatesAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.CompleteSSOLogin(ctx, CompleteLoginInput{
		Code: "code", State: "state-1", Nonce: "nonce-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "mock-remote-1", result.User.RemoteID)
	assert.Equal(t, "mock-user-1", result.User.Handle)

	// Second login resolves the same account
	again, err := f.svc.CompleteSSOLogin(ctx, CompleteLoginInput{
		Code: "code", State: "state-2", Nonce: "nonce-2",
	})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID)
}

func TestAuthService_CompleteSSOLoginValidatesInput(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.CompleteSSOLogin(ctx, CompleteLoginInput{State: "s", Nonce: "n"})
	assert.Error(t, err)
	_, err = f.svc.CompleteSSOLogin(ctx, CompleteLoginInput{Code: "c", Nonce: "n"})
	assert.Error(t, err)
	_, err = f.svc.CompleteSSOLogin(ctx, CompleteLoginInput{Code: "c", State: "s"})
	assert.Error(t, err)
}

func TestAuthService_CompleteSSOLoginCapsExpiryToToken(t *testing.T) {
	f := newAuthFixture(t)

	tokenExpiry := f.clock.Now().Add(10 * time.Minute)
	f.provider.ExchangeFunc = func(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
		return domainauth.Identity{RemoteID: "r1", Email: "r1@example.com", ExpiresAt: tokenExpiry}, nil
	}

	result, err := f.svc.CompleteSSOLogin(context.Background(), CompleteLoginInput{
		Code: "code", State: "s", Nonce: "n",
	})
	require.NoError(t, err)
	assert.Equal(t, tokenExpiry, result.Session.ExpiresAt)
}

func TestAuthService_SSOWithoutProvider(t *testing.T) {
	uf := newUserFixture(t, nil, nil)
	svc, err := NewAuthService(AuthServiceOptions{Users: uf.svc, Sessions: uf.sessions})
	require.NoError(t, err)

	_, err = svc.BeginSSOLogin(context.Background(), "https://app/callback")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = svc.CompleteSSOLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuthService_GetSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.sessions.Save(ctx, model.Session{
		ID: "s1", UserID: "u1",
		Permissions: model.NoPermissions(),
		ExpiresAt:   f.clock.Now().Add(time.Hour),
	}))

	session, err := f.svc.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)

	_, err = f.svc.GetSession(ctx, "")
	assert.Error(t, err)

	_, err = f.svc.GetSession(ctx, "missing")
	assert.Error(t, err)
}

func TestAuthService_GetSessionExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.sessions.Save(ctx, model.Session{
		ID: "s1", UserID: "u1",
		Permissions: model.NoPermissions(),
		ExpiresAt:   f.clock.Now().Add(time.Minute),
	}))

	f.clock.AddTime(2 * time.Minute)

	_, err := f.svc.GetSession(ctx, "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.Empty(t, f.users.sessions.All(), "expired session is removed")
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.sessions.Save(ctx, model.Session{
		ID: "s1", UserID: "u1",
		Permissions: model.NoPermissions(),
		ExpiresAt:   f.clock.Now().Add(time.Hour),
	}))

	require.NoError(t, f.svc.Logout(ctx, "s1"))
	assert.Empty(t, f.users.sessions.All())

	assert.NoError(t, f.svc.Logout(ctx, ""))
}
