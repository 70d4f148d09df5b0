package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"stella/internal/infra"
	"stella/internal/jobs/webhook"
	"stella/internal/providers/comfydeploy"
)

func newWebhookApp(t *testing.T) *App {
	t.Helper()
	store := webhook.NewMemoryStore()
	t.Cleanup(store.Close)
	return &App{
		Config:   &infra.Config{},
		Logger:   zerolog.Nop(),
		Receiver: webhook.NewReceiver(store, comfydeploy.MapStatus, zerolog.Nop()),
	}
}

func TestWebhookReceiveThenLookup(t *testing.T) {
	app := newWebhookApp(t)

	payload := `{"run_id":"abc123","status":"success","outputs":[{"data":{"images":[{"url":"https://cdn.example.com/final.png","filename":"final.png"}]}}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	app.WebhookReceive(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("receive: got %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/webhook?runId=abc123", nil)
	rec = httptest.NewRecorder()
	app.WebhookLookup(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"status":"completed"`) {
		t.Fatalf("lookup body missing terminal status: %s", body)
	}
	if !strings.Contains(body, "final.png") {
		t.Fatalf("lookup body missing asset: %s", body)
	}
}

func TestWebhookLookupPendingWhenAbsent(t *testing.T) {
	app := newWebhookApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/webhook?runId=nothing-yet", nil)
	rec := httptest.NewRecorder()
	app.WebhookLookup(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"pending"`) {
		t.Fatalf("expected pending, got %s", rec.Body.String())
	}
}

func TestWebhookReceiveRejectsGarbage(t *testing.T) {
	app := newWebhookApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader("not json at all"))
	rec := httptest.NewRecorder()
	app.WebhookReceive(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rec.Code)
	}
}
