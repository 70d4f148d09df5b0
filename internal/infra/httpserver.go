package infra

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer wraps the net/http server with the timeout profile this
// service needs. Write timeouts are long because sync-mode generation
// requests hold the response open while the GPU works.
type HTTPServer struct {
	server *http.Server
}

func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
	}
}

// Start blocks until the listener fails or Shutdown is called.
func (s *HTTPServer) Start() error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	return s.server.ListenAndServe()
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
