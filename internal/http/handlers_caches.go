package httpx

import (
	"net/http"

	"github.com/seqdepot/seqdepot/internal/service"
)

// CacheHandlers provides HTTP handlers for sample analysis caches.
type CacheHandlers struct {
	Svc *service.CacheService
}

// Get handles GET /api/caches/{id}. Caches whose backing directory has gone
// missing are flagged before being returned.
func (h *CacheHandlers) Get(w http.ResponseWriter, r *http.Request) {
	cache, err := h.Svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cache)
}

// ListBySample handles GET /api/samples/{id}/caches.
func (h *CacheHandlers) ListBySample(w http.ResponseWriter, r *http.Request) {
	caches, err := h.Svc.ListBySample(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": caches})
}

// FindReusable handles GET /api/samples/{id}/caches/reusable?key=<key>.
// Workers call this before re-trimming a sample's reads.
func (h *CacheHandlers) FindReusable(w http.ResponseWriter, r *http.Request) {
	cache, err := h.Svc.FindReusable(r.Context(), r.PathValue("id"), r.URL.Query().Get("key"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cache)
}
