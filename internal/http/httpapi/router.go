package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"stella/internal/http/handlers"
	"stella/internal/middleware"
)

// NewRouter wires the HTTP surface. The webhook endpoints stay outside the
// session gate; providers call them, not browsers.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(splitOrigins(app.Config.CORSAllowedOrigins)),
	)
	if app.Config.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
	}

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", app.Login)
		r.Post("/auth/logout", app.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminKey(app.Config.AdminAPIKey))
			r.Get("/auth/users", app.UsersList)
			r.Post("/auth/users", app.UserCreate)
			r.Delete("/auth/users/{id}", app.UserDelete)
			r.Post("/auth/init-db", app.InitDB)
		})

		// Ingress only; the provider cannot authenticate.
		r.Post("/webhook", app.WebhookReceive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(app.Config.JWTSecret))

			r.Get("/webhook", app.WebhookLookup)
			r.Get("/workflows", app.Workflows)
			r.Post("/run-workflow", app.RunWorkflow)
			r.Get("/status/{runId}", app.Status)
			r.Get("/runs/{runId}", app.Run)
			r.Post("/jobs/{jobId}/cancel", app.CancelRun)

			r.Post("/run-vellum", app.RunVellum)
			r.Get("/vellum-status", app.VellumStatus)

			r.Post("/run-ai-talk", app.RunAITalk)
			r.Get("/ai-talk-status", app.AITalkStatus)

			r.Get("/voices", app.VoicesList)
		})
	})

	return r
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
