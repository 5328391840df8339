package httpx

import (
	"errors"
	"net/http"

	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/seqdepot/seqdepot/internal/service"
)

// AccountHandlers provides HTTP handlers scoped to the authenticated caller:
// the account document and its API keys.
type AccountHandlers struct {
	Users *service.UserService
	Keys  *service.KeyService
}

// Get handles GET /api/account.
func (h *AccountHandlers) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	user, err := h.Users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// ChangePassword handles PUT /api/account/password. The caller sets their own
// password after verifying the current one; this clears any pending force
// reset and revokes other sessions.
func (h *AccountHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var body struct {
		OldPassword string `json:"old_password"`
		Password    string `json:"password"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	user, err := h.Users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if _, err := h.Users.ValidateCredentials(r.Context(), user.Handle, body.OldPassword); err != nil {
		WriteServiceError(w, err)
		return
	}

	forceReset := false
	updated, err := h.Users.Update(r.Context(), identity.UserID, model.UpdateUserRequest{
		Password:   &body.Password,
		ForceReset: &forceReset,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

// ListKeys handles GET /api/account/keys.
func (h *AccountHandlers) ListKeys(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	keys, err := h.Keys.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": keys})
}

// CreateKey handles POST /api/account/keys. The response carries the raw
// bearer value exactly once; only its digest is stored.
func (h *AccountHandlers) CreateKey(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var req model.CreateKeyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	owner, err := h.Users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	result, err := h.Keys.Create(r.Context(), owner, req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"key":    result.Key,
		"secret": result.Secret,
	})
}

// GetKey handles GET /api/account/keys/{id}.
func (h *AccountHandlers) GetKey(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	key, err := h.Keys.GetForUser(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, key)
}

// UpdateKey handles PATCH /api/account/keys/{id}. Requested permissions are
// capped at the owner's current effective set.
func (h *AccountHandlers) UpdateKey(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var req model.UpdateKeyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	owner, err := h.Users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	key, err := h.Keys.Update(r.Context(), owner, r.PathValue("id"), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, key)
}

// DeleteKey handles DELETE /api/account/keys/{id}.
func (h *AccountHandlers) DeleteKey(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	if err := h.Keys.Delete(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeMissingIdentity(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}
