package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"stella/internal/infra"
	"stella/internal/infra/geoip"
	"stella/internal/jobs"
	"stella/internal/jobs/webhook"
	"stella/internal/providers/comfydeploy"
	"stella/internal/providers/elevenlabs"
	"stella/internal/providers/runpod"
	"stella/internal/users"
)

// App holds every dependency the HTTP handlers need.
type App struct {
	Config *infra.Config
	Logger infra.Logger

	Users *users.Store
	Geo   geoip.CountryResolver

	ComfyDeploy *comfydeploy.Client
	RunPod      *runpod.Client
	RunPodTalk  *runpod.Client
	Voices      *elevenlabs.Client

	Jobs     *jobs.Controller
	Receiver *webhook.Receiver
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, map[string]string{"error": kind, "message": msg})
}

// upstream maps provider errors onto HTTP responses. The raw upstream body
// is passed through so the caller sees what the provider actually said.
func (a *App) upstream(w http.ResponseWriter, err error) {
	var cfgErr *jobs.ConfigurationError
	var upErr *jobs.UpstreamError
	var protoErr *jobs.ProtocolError
	var toErr *jobs.TimeoutError
	switch {
	case errors.As(err, &cfgErr):
		a.Logger.Error().Err(err).Msg("provider not configured")
		a.error(w, http.StatusInternalServerError, "configuration", cfgErr.Error())
	case errors.As(err, &upErr):
		a.Logger.Error().Int("status", upErr.StatusCode).Str("provider", upErr.Provider).Msg("upstream request failed")
		a.error(w, http.StatusBadGateway, "upstream", upErr.Body)
	case errors.As(err, &protoErr):
		a.Logger.Error().Err(err).Msg("upstream response unreadable")
		a.error(w, http.StatusBadGateway, "protocol", protoErr.Error())
	case errors.As(err, &toErr):
		a.error(w, http.StatusGatewayTimeout, "timeout", toErr.Error())
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "request failed")
	}
}

// webhookURL is the push callback address registered with providers, empty
// when no public base URL is configured.
func (a *App) webhookURL() string {
	if a.Config.WebhookBaseURL == "" {
		return ""
	}
	return a.Config.WebhookBaseURL + "/api/webhook"
}
