package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stella/internal/jobs"
)

// Run returns the converged state of a watched run: whatever the webhook
// and poll race has agreed on so far.
func (a *App) Run(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	if runID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "runId required")
		return
	}
	res, ok := a.Jobs.Lookup(jobs.Handle(runID))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "run not found")
		return
	}
	a.json(w, http.StatusOK, res)
}

// CancelRun is the explicit upstream cancel for GPU serverless jobs. It
// also stops any watch loop for the handle; a watcher on its own never
// cancels upstream work.
func (a *App) CancelRun(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "jobId required")
		return
	}
	a.Jobs.Cancel(jobs.Handle(jobID))
	if err := a.RunPod.Cancel(r.Context(), jobs.Handle(jobID)); err != nil {
		a.upstream(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true})
}
