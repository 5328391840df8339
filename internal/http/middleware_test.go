package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/seqdepot/seqdepot/internal/errors"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

type stubSessionAuth struct {
	sessions map[string]*model.Session
}

func (s *stubSessionAuth) GetSession(_ context.Context, id string) (*model.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.Unauthorized("Invalid session")
	}
	return session, nil
}

type stubKeyAuth struct {
	keys map[string]*model.Key
}

func (s *stubKeyAuth) Authenticate(_ context.Context, raw string) (*model.Key, error) {
	key, ok := s.keys[raw]
	if !ok {
		return nil, apperrors.Unauthorized("Invalid API key")
	}
	return key, nil
}

func testAuthenticators() Authenticators {
	perms := model.NoPermissions()
	perms[model.PermissionCreateSample] = true
	return Authenticators{
		Sessions: &stubSessionAuth{sessions: map[string]*model.Session{
			"sess-1": {
				ID:          "sess-1",
				UserID:      "user-1",
				Permissions: perms,
			},
			"sess-admin": {
				ID:            "sess-admin",
				UserID:        "user-admin",
				Administrator: true,
				Permissions:   model.NoPermissions(),
			},
		}},
		Keys: &stubKeyAuth{keys: map[string]*model.Key{
			"raw-key-1": {
				ID:          "key-1",
				UserID:      "user-2",
				Permissions: perms,
			},
		}},
	}
}

// echoIdentity writes the resolved identity so tests can assert on it.
func echoIdentity(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
		"key_id":     identity.KeyID,
	})
}

func TestRequireAuth_NoCredentials(t *testing.T) {
	handler := RequireAuth(testAuthenticators())(http.HandlerFunc(echoIdentity))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/account", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication_required")
}

func TestRequireAuth_SessionCookie(t *testing.T) {
	handler := RequireAuth(testAuthenticators())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-1"`)
	assert.Contains(t, rec.Body.String(), `"session_id":"sess-1"`)
}

func TestRequireAuth_InvalidSession(t *testing.T) {
	handler := RequireAuth(testAuthenticators())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-gone"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_BearerKey(t *testing.T) {
	handler := RequireAuth(testAuthenticators())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/acquire", nil)
	req.Header.Set("Authorization", "Bearer raw-key-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-2"`)
	assert.Contains(t, rec.Body.String(), `"key_id":"key-1"`)
}

func TestRequireAuth_BearerTakesPrecedenceOverCookie(t *testing.T) {
	handler := RequireAuth(testAuthenticators())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer raw-key-1")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-2"`)
}

func TestRequireAuth_BadBearerDoesNotFallBack(t *testing.T) {
	handler := RequireAuth(testAuthenticators())(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer nope")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	auth := testAuthenticators()
	handler := RequireAuth(auth)(RequireAdmin(http.HandlerFunc(echoIdentity)))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "administrator access required")

	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-admin"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	auth := testAuthenticators()
	handler := RequireAuth(auth)(
		RequirePermission(model.PermissionRemoveFile)(http.HandlerFunc(echoIdentity)))

	// sess-1 has create_sample but not remove_file.
	req := httptest.NewRequest(http.MethodDelete, "/api/uploads/1", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing permission: remove_file")

	// Administrators pass every permission gate.
	req = httptest.NewRequest(http.MethodDelete, "/api/uploads/1", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-admin"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityCan(t *testing.T) {
	perms := model.NoPermissions()
	perms[model.PermissionUploadFile] = true

	regular := &Identity{UserID: "u", Permissions: perms}
	assert.True(t, regular.Can(model.PermissionUploadFile))
	assert.False(t, regular.Can(model.PermissionCancelJob))

	admin := &Identity{UserID: "a", Administrator: true}
	assert.True(t, admin.Can(model.PermissionCancelJob))

	var missing *Identity
	assert.False(t, missing.Can(model.PermissionUploadFile))
}
