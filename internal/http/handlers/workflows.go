package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"stella/internal/jobs"
	"stella/internal/providers/runpod"
	"stella/internal/workflows"
)

const maxUploadBytes = 32 << 20

func (a *App) Workflows(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"workflows": workflows.All()})
}

// RunWorkflow accepts a multipart form matching the workflow's declared
// inputs, submits the job, and starts watching it. The response carries
// only the provider handle; progress is read from /api/runs/{runId}.
func (a *App) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	wf := workflows.Default()
	if id := r.FormValue("workflow"); id != "" {
		var ok bool
		if wf, ok = workflows.ByID(id); !ok {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown workflow")
			return
		}
	}
	backend, err := a.backendFor(wf)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	slots, errMsg := a.collectSlots(r, wf)
	if errMsg != "" {
		a.error(w, http.StatusBadRequest, "bad_request", errMsg)
		return
	}

	// The catalog id names a form layout, not a provider deployment; the
	// deployment binding always comes from the adapter's configuration.
	handle, err := a.Jobs.Start(r.Context(), backend, jobs.Request{
		Slots:      slots,
		WebhookURL: a.webhookURL(),
	})
	if err != nil {
		a.upstream(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "runId": handle})
}

func (a *App) backendFor(wf workflows.Workflow) (jobs.Backend, error) {
	switch wf.Backend {
	case workflows.BackendComfyDeploy:
		return a.ComfyDeploy, nil
	case workflows.BackendRunPod:
		return a.RunPod, nil
	case workflows.BackendRunPodTalk:
		return runpod.TalkBackend{Client: a.RunPodTalk}, nil
	}
	return nil, errUnsupportedBackend
}

var errUnsupportedBackend = errors.New("workflow has no runnable backend")

// collectSlots reads the workflow's inputs off the form. Image slots come
// from file parts, everything else from plain values. Returns a message
// instead of an error value so handlers can pass it straight to the client.
func (a *App) collectSlots(r *http.Request, wf workflows.Workflow) (map[string]jobs.SlotValue, string) {
	slots := make(map[string]jobs.SlotValue, len(wf.Slots))
	for _, slot := range wf.Slots {
		if slot.Type == "image" {
			file, header, err := r.FormFile(slot.Name)
			if err != nil {
				if slot.Required {
					return nil, slot.Name + " is required"
				}
				continue
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return nil, "failed to read " + slot.Name
			}
			slots[slot.Name] = jobs.ImageValue(data, header.Header.Get("Content-Type"), header.Filename)
			continue
		}
		value := r.FormValue(slot.Name)
		if value == "" {
			if slot.Default != "" {
				value = slot.Default
			} else if slot.Required {
				return nil, slot.Name + " is required"
			} else {
				continue
			}
		}
		switch slot.Type {
		case "select", "voice-select":
			if len(slot.Options) > 0 && !contains(slot.Options, value) {
				return nil, slot.Name + " must be one of the listed options"
			}
			slots[slot.Name] = jobs.ChoiceValue(value)
		case "slider":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || f < slot.Min || f > slot.Max {
				return nil, slot.Name + " is out of range"
			}
			slots[slot.Name] = jobs.NumberValue(f)
		default:
			slots[slot.Name] = jobs.TextValue(value)
		}
	}
	return slots, ""
}

func contains(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
