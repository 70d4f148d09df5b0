package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stella/internal/http/handlers"
	"stella/internal/infra"
	"stella/internal/middleware"
)

func newRouter() http.Handler {
	return NewRouter(&handlers.App{
		Config: &infra.Config{JWTSecret: "test-secret", AdminAPIKey: "admin-key"},
		Logger: zerolog.Nop(),
	})
}

func TestSessionGate(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no cookie: got %d", rec.Code)
	}

	token, _ := middleware.SignToken("test-secret", middleware.TokenClaims{
		Sub:      7,
		Username: "ops",
		Exp:      time.Now().Add(time.Hour).Unix(),
	})
	req = httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	req.AddCookie(middleware.NewSessionCookie(token, middleware.SessionMaxAge, false))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with cookie: got %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "model-product-fusion") {
		t.Fatalf("workflow catalog missing: %s", rec.Body.String())
	}
}

func TestAdminGate(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: got %d", rec.Code)
	}
}

func TestHealthOpen(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
}
