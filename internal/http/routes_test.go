package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRouter() http.Handler {
	return NewRouter(RouterServices{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_APIRequiresAuth(t *testing.T) {
	router := newTestRouter()
	paths := []string{"/api/users", "/api/jobs", "/api/labels", "/api/webhooks", "/api/account"}

	for _, path := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users?limit=25&offset=junk", nil)

	assert.Equal(t, 25, parseIntQuery(req, "limit", 50))
	assert.Equal(t, 0, parseIntQuery(req, "offset", 0))
	assert.Equal(t, 50, parseIntQuery(req, "missing", 50))
}
