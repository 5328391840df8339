package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/seqdepot/seqdepot/internal/errors"
	"github.com/seqdepot/seqdepot/internal/service"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error, body.Message
}

func TestWriteServiceError_AppErrorMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{apperrors.NotFound("User does not exist"), http.StatusNotFound, "not_found"},
		{apperrors.Conflict("User already exists"), http.StatusConflict, "conflict"},
		{apperrors.ForeignKey("Group is in use"), http.StatusConflict, "foreign_key"},
		{apperrors.Validation("Non-existent groups: ghosts"), http.StatusBadRequest, "validation"},
		{apperrors.Unauthorized("Invalid session"), http.StatusUnauthorized, "unauthorized"},
		{apperrors.Forbidden("nope"), http.StatusForbidden, "forbidden"},
		{apperrors.Internal("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.wantCode, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			code, msg := decodeErrorBody(t, rec)
			assert.Equal(t, tc.wantCode, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestWriteServiceError_SurfacesValidationKind(t *testing.T) {
	cases := []struct {
		err      error
		wantKind string
	}{
		{apperrors.ValidationKind(apperrors.KindNonExistentGroups, "Non-existent groups: ghosts"), "non_existent_groups"},
		{apperrors.ValidationKind(apperrors.KindNonExistentGroup, "Non-existent group: ghosts"), "non_existent_group"},
		{apperrors.ValidationKind(apperrors.KindNotAMember, "User is not member of group"), "not_a_member"},
	}

	for _, tc := range cases {
		t.Run(tc.wantKind, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tc.err)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body struct {
				Error string `json:"error"`
				Kind  string `json:"kind"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "validation", body.Error)
			assert.Equal(t, tc.wantKind, body.Kind)
		})
	}

	// Errors without a sub-kind keep the two-field body.
	rec := httptest.NewRecorder()
	WriteServiceError(rec, apperrors.Validation("bad input"))
	assert.NotContains(t, rec.Body.String(), "kind")
}

func TestWriteServiceError_PropagationFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, fmt.Errorf("update user: %w", service.ErrPropagationFailed))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, msg := decodeErrorBody(t, rec)
	assert.Equal(t, "propagation_failed", code)
	assert.Contains(t, msg, "propagation")
}

func TestWriteServiceError_TranslatesRawDriverErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, fmt.Errorf("create label: %w", &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: "Key (name)=(fresh) already exists.",
	}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	code, _ := decodeErrorBody(t, rec)
	assert.Equal(t, "conflict", code)
}

func TestWriteServiceError_UnknownErrorIsOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, errors.New("pq: connection refused to 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, msg := decodeErrorBody(t, rec)
	assert.Equal(t, "internal", code)
	assert.NotContains(t, msg, "10.0.0.5")
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api/labels",
		strings.NewReader(`{"name":"fresh","colour":"#ff0000"}`))
	rec := httptest.NewRecorder()

	ok := DecodeJSON(rec, req, &dst)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeJSON_RoundTrip(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api/labels",
		strings.NewReader(`{"name":"fresh"}`))
	rec := httptest.NewRecorder()

	ok := DecodeJSON(rec, req, &dst)

	require.True(t, ok)
	assert.Equal(t, "fresh", dst.Name)
}
