package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/seqdepot/seqdepot/internal/service"
)

// UploadHandlers provides HTTP handlers for the upload lifecycle.
type UploadHandlers struct {
	Svc *service.UploadService
}

// Create handles POST /api/uploads. It opens the upload record; bytes are
// streamed separately and the record becomes visible once finalized.
func (h *UploadHandlers) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var req model.CreateUploadRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	upload, err := h.Svc.Create(r.Context(), req, identity.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, upload)
}

// Finalize handles POST /api/uploads/{id}/finalize with {"size": ...}.
func (h *UploadHandlers) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUploadID(w, r)
	if !ok {
		return
	}

	var body struct {
		Size int64 `json:"size"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	upload, err := h.Svc.Finalize(r.Context(), id, body.Size)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, upload)
}

// Find handles GET /api/uploads with optional type/user filters.
func (h *UploadHandlers) Find(w http.ResponseWriter, r *http.Request) {
	opts := model.UploadListOptions{
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	}
	if v := r.URL.Query().Get("type"); v != "" {
		t := model.UploadType(v)
		opts.Type = &t
	}
	if v := r.URL.Query().Get("user"); v != "" {
		opts.UserID = &v
	}

	uploads, err := h.Svc.Find(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": uploads})
}

// Get handles GET /api/uploads/{id}.
func (h *UploadHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUploadID(w, r)
	if !ok {
		return
	}

	upload, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, upload)
}

// Delete handles DELETE /api/uploads/{id}. The row is soft-removed and the
// backing file cleaned up best-effort.
func (h *UploadHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUploadID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.Delete(r.Context(), id); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reserve handles POST /api/uploads/reserve with {"ids": [...]}.
func (h *UploadHandlers) Reserve(w http.ResponseWriter, r *http.Request) {
	h.flipReservation(w, r, h.Svc.Reserve)
}

// Release handles POST /api/uploads/release with {"ids": [...]}.
func (h *UploadHandlers) Release(w http.ResponseWriter, r *http.Request) {
	h.flipReservation(w, r, h.Svc.Release)
}

func (h *UploadHandlers) flipReservation(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, ids []int64) error,
) {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	if err := op(r.Context(), body.IDs); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ids": body.IDs})
}

func parseUploadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("upload id must be an integer"),
		})
		return 0, false
	}
	return id, true
}
