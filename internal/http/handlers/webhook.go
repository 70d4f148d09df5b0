package handlers

import (
	"io"
	"net/http"

	"stella/internal/jobs"
)

// WebhookReceive ingests a push notification from the workflow provider,
// normalizes it, and stores it for the watch loops to pick up.
func (a *App) WebhookReceive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read body")
		return
	}
	rec, err := a.Receiver.Receive(r.Context(), body)
	if err != nil {
		a.Logger.Error().Err(err).Msg("webhook rejected")
		a.error(w, http.StatusInternalServerError, "internal", "failed to process webhook")
		return
	}
	a.Logger.Info().Str("run_id", string(rec.Handle)).Str("status", string(rec.Status)).Msg("webhook stored")
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

// WebhookLookup answers whether a push notification has arrived for a run.
// Absence is reported as pending, not as an error.
func (a *App) WebhookLookup(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("runId")
	if runID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "runId required")
		return
	}
	rec, ok := a.Receiver.Lookup(r.Context(), jobs.Handle(runID))
	if !ok {
		a.json(w, http.StatusOK, map[string]string{"status": "pending"})
		return
	}
	a.json(w, http.StatusOK, rec)
}
