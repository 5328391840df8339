package httpx

import (
	"errors"
	"net/http"

	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/seqdepot/seqdepot/internal/service"
)

// JobHandlers provides HTTP handlers for the workflow job queue, covering
// both the user-facing API and the worker lease endpoints.
type JobHandlers struct {
	Svc *service.JobService
}

// Create handles POST /api/jobs.
func (h *JobHandlers) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Create(r.Context(), &req, identity.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// List handles GET /api/jobs with optional state/workflow filters.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := model.JobListOptions{
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	}
	if v := r.URL.Query().Get("state"); v != "" {
		state := model.JobState(v)
		if !state.Valid() {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_query",
				Err:     errors.New("invalid job state filter"),
			})
			return
		}
		opts.State = &state
	}
	if v := r.URL.Query().Get("workflow"); v != "" {
		wf := model.JobWorkflow(v)
		if !wf.Valid() {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_query",
				Err:     errors.New("invalid workflow filter"),
			})
			return
		}
		opts.Workflow = &wf
	}

	jobs, err := h.Svc.List(r.Context(), &opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": jobs})
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Acquire handles POST /api/jobs/acquire. Workers post the workflows they
// can run; an empty queue yields 204 so pollers can back off cheaply.
func (h *JobHandlers) Acquire(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Workflows    []model.JobWorkflow `json:"workflows"`
		LeaseSeconds int                 `json:"lease_seconds"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	if len(body.Workflows) == 0 {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_request",
			Err:     errors.New("at least one workflow is required"),
		})
		return
	}

	job, err := h.Svc.Acquire(r.Context(), body.Workflows, body.LeaseSeconds)
	if errors.Is(err, model.ErrNoJobsAvailable) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Ping handles POST /api/jobs/{id}/ping. Returns {"ok": false} when the job
// is no longer running, signalling the worker to stop.
func (h *JobHandlers) Ping(w http.ResponseWriter, r *http.Request) {
	var req model.JobProgressRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	alive, err := h.Svc.Ping(r.Context(), r.PathValue("id"), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": alive})
}

// Complete handles POST /api/jobs/{id}/complete.
func (h *JobHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	completed, err := h.Svc.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": completed})
}

// Fail handles POST /api/jobs/{id}/fail with {"error": ...}.
func (h *JobHandlers) Fail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Error string `json:"error"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	failed, err := h.Svc.Fail(r.Context(), r.PathValue("id"), body.Error)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": failed})
}

// Cancel handles PUT /api/jobs/{id}/cancel.
func (h *JobHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Cancel(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/jobs/stats.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Delete handles DELETE /api/jobs/{id}. Only terminal jobs are deletable.
func (h *JobHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Svc.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusConflict,
			ErrCode: "conflict",
			Err:     errors.New("Job is not finished and cannot be deleted"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
