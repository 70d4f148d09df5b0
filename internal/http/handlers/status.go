package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stella/internal/jobs"
)

// Status performs one live poll against the workflow provider and returns
// the normalized view. It does not consult the watch registry; for the
// converged race result use /api/runs/{runId}.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	if runID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "runId required")
		return
	}
	res, err := a.ComfyDeploy.PollStatus(r.Context(), jobs.Handle(runID))
	if err != nil {
		a.upstream(w, err)
		return
	}
	a.json(w, http.StatusOK, jobs.Result{
		Handle: jobs.Handle(runID),
		Status: res.Status,
		Assets: res.Assets,
		Err:    res.Err,
	})
}
