package handler

import (
	"net/http"

	"docuchat/internal/domain/services"
	"docuchat/internal/httputil"
)

// JobHandler exposes the background job queue over HTTP
type JobHandler struct {
	jobs services.JobService
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// List retrieves jobs, optionally filtered by ?status=
// GET /api/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, jobs)
}

// Get retrieves one job
// GET /api/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "job id")
	if !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, job)
}
