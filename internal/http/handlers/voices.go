package handlers

import (
	"net/http"
)

func (a *App) VoicesList(w http.ResponseWriter, r *http.Request) {
	voices, err := a.Voices.Voices(r.Context())
	if err != nil {
		a.upstream(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"voices": voices})
}
