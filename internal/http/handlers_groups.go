package httpx

import (
	"errors"
	"net/http"

	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/seqdepot/seqdepot/internal/service"
)

// GroupHandlers provides administrator HTTP handlers for group management.
type GroupHandlers struct {
	Svc *service.GroupService
}

// List handles GET /api/groups.
func (h *GroupHandlers) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Svc.List(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": groups})
}

// Create handles POST /api/groups.
func (h *GroupHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateGroupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	group, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, group)
}

// Get handles GET /api/groups/{id}.
func (h *GroupHandlers) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.Svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, group)
}

// Update handles PATCH /api/groups/{id}. Only the named permissions change;
// member users pick the change up on their next edit.
func (h *GroupHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateGroupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	group, err := h.Svc.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, group)
}

// Delete handles DELETE /api/groups/{id}.
func (h *GroupHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Svc.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("Group does not exist"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
