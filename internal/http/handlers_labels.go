package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/seqdepot/seqdepot/internal/service"
)

// LabelHandlers provides HTTP handlers for sample label CRUD.
type LabelHandlers struct {
	Svc *service.LabelService
}

// List handles GET /api/labels.
func (h *LabelHandlers) List(w http.ResponseWriter, r *http.Request) {
	labels, err := h.Svc.List(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": labels})
}

// Create handles POST /api/labels.
func (h *LabelHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateLabelRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	label, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, label)
}

// Get handles GET /api/labels/{id}.
func (h *LabelHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseLabelID(w, r)
	if !ok {
		return
	}

	label, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, label)
}

// Update handles PATCH /api/labels/{id}.
func (h *LabelHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseLabelID(w, r)
	if !ok {
		return
	}

	var req model.UpdateLabelRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	label, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, label)
}

// Delete handles DELETE /api/labels/{id}.
func (h *LabelHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseLabelID(w, r)
	if !ok {
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("Label does not exist"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseLabelID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("label id must be an integer"),
		})
		return 0, false
	}
	return id, true
}
