package handlers

import (
	"io"
	"net/http"
	"strings"

	"stella/internal/jobs"
	"stella/internal/providers/payload"
	"stella/internal/providers/runpod"
)

// RunAITalk submits a talking-head video job: a portrait plus a script the
// voice endpoint reads aloud. The image goes into the workflow graph as
// bare base64, that endpoint does not accept data URIs.
func (a *App) RunAITalk(w http.ResponseWriter, r *http.Request) {
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

	speechText := strings.TrimSpace(r.FormValue("speech_text"))
	if speechText == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "speech_text is required")
		return
	}
	voiceID := r.FormValue("voice_id")

	image := jobs.ImageValue(data, header.Header.Get("Content-Type"), header.Filename)
	imageB64 := payload.EncodeImage(image, payload.StripDataURIPrefix)

	handle, err := a.RunPodTalk.SubmitInput(r.Context(), runpod.TalkInput(imageB64, speechText, voiceID))
	if err != nil {
		a.upstream(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "jobId": handle})
}

func (a *App) AITalkStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "jobId required")
		return
	}
	res, err := a.RunPodTalk.PollStatus(r.Context(), jobs.Handle(jobID))
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
