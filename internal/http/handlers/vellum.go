package handlers

import (
	"io"
	"net/http"
	"strconv"

	"stella/internal/jobs"
	"stella/internal/providers/payload"
)

const (
	defaultStrengthModel = 0.5
)

// RunVellum submits an upscale job to the GPU serverless endpoint. With
// ?mode=sync the request blocks until the job finishes or the sync timeout
// fires; otherwise it returns the job id for polling via /api/vellum-status.
func (a *App) RunVellum(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("input_image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "input_image is required")
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read input_image")
		return
	}

	strength := defaultStrengthModel
	if raw := r.FormValue("strength_model"); raw != "" {
		strength, err = strconv.ParseFloat(raw, 64)
		if err != nil || strength < 0 || strength > 1 {
			a.error(w, http.StatusBadRequest, "bad_request", "strength_model must be between 0 and 1")
			return
		}
	}
	scaleBy := r.FormValue("scale_by")
	if scaleBy != "2" && scaleBy != "4" && scaleBy != "8" {
		a.error(w, http.StatusBadRequest, "bad_request", "scale_by must be 2, 4 or 8")
		return
	}

	slots := map[string]jobs.SlotValue{
		"input_image":    jobs.ImageValue(data, header.Header.Get("Content-Type"), header.Filename),
		"strength_model": jobs.NumberValue(strength),
		"scale_by":       jobs.ChoiceValue(scaleBy),
	}

	if r.URL.Query().Get("mode") == "sync" {
		res, err := a.RunPod.RunSync(r.Context(), payload.Inputs(slots, payload.KeepDataURIPrefix))
		if err != nil {
			a.upstream(w, err)
			return
		}
		a.json(w, http.StatusOK, jobs.Result{Status: res.Status, Assets: res.Assets, Err: res.Err})
		return
	}

	handle, err := a.RunPod.Submit(r.Context(), jobs.Request{Workflow: "vellum-upscale", Slots: slots})
	if err != nil {
		a.upstream(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "jobId": handle})
}

func (a *App) VellumStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "jobId required")
		return
	}
	res, err := a.RunPod.PollStatus(r.Context(), jobs.Handle(jobID))
	if err != nil {
		a.upstream(w, err)
		return
	}
	a.json(w, http.StatusOK, jobs.Result{
		Handle: jobs.Handle(jobID),
		Status: res.Status,
		Assets: res.Assets,
		Err:    res.Err,
	})
}
