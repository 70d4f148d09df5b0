package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stella/internal/infra"
	"stella/internal/jobs"
	"stella/internal/providers/comfydeploy"
	"stella/internal/providers/runpod"
)

type multipartBody struct {
	buf    bytes.Buffer
	writer *multipart.Writer
}

func newMultipart() *multipartBody {
	m := &multipartBody{}
	m.writer = multipart.NewWriter(&m.buf)
	return m
}

func (m *multipartBody) field(name, value string) *multipartBody {
	_ = m.writer.WriteField(name, value)
	return m
}

func (m *multipartBody) file(name, filename string, data []byte) *multipartBody {
	part, _ := m.writer.CreateFormFile(name, filename)
	_, _ = part.Write(data)
	return m
}

func (m *multipartBody) request(method, target string) *http.Request {
	_ = m.writer.Close()
	req := httptest.NewRequest(method, target, &m.buf)
	req.Header.Set("Content-Type", m.writer.FormDataContentType())
	return req
}

func TestRunWorkflowSubmitsAndWatches(t *testing.T) {
	var submitted map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &submitted)
			_, _ = w.Write([]byte(`{"run_id":"wf-run-1"}`))
		default:
			_, _ = w.Write([]byte(`{"id":"wf-run-1","status":"running"}`))
		}
	}))
	defer upstream.Close()

	app := &App{
		Config: &infra.Config{WebhookBaseURL: "https://bff.example.com"},
		Logger: zerolog.Nop(),
		ComfyDeploy: comfydeploy.NewClient(comfydeploy.Options{
			APIKey:       "key",
			DeploymentID: "dep-1",
			BaseURL:      upstream.URL,
		}),
		Jobs: jobs.NewController(nil, jobs.ControllerOptions{
			PollInterval: time.Hour,
			Logger:       zerolog.Nop(),
		}),
	}

	pngSig := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	req := newMultipart().
		field("workflow", "model-product-fusion").
		file("model_image", "model.png", pngSig).
		file("product_image", "bag.png", pngSig).
		field("size_preset", "2048x2048 (1:1)").
		request(http.MethodPost, "/api/run-workflow")
	rec := httptest.NewRecorder()
	app.RunWorkflow(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"runId":"wf-run-1"`) {
		t.Fatalf("missing run id: %s", rec.Body.String())
	}

	if submitted["deployment_id"] != "dep-1" {
		t.Fatalf("deployment_id = %v", submitted["deployment_id"])
	}
	if submitted["webhook"] != "https://bff.example.com/api/webhook" {
		t.Fatalf("webhook = %v", submitted["webhook"])
	}
	inputs, _ := submitted["inputs"].(map[string]any)
	if img, _ := inputs["model_image"].(string); !strings.HasPrefix(img, "data:image/png;base64,") {
		t.Fatalf("model_image not a data URI: %.40s", img)
	}
	if pose, _ := inputs["pose_selection"].(string); !strings.HasPrefix(pose, "Plano medio") {
		t.Fatalf("pose_selection default not applied: %q", pose)
	}
	if bg, _ := inputs["background_selection"].(string); !strings.HasPrefix(bg, "Fondo blanco") {
		t.Fatalf("background_selection default not applied: %q", bg)
	}

	if res, ok := app.Jobs.Lookup("wf-run-1"); !ok || res.Status != jobs.StatusQueued {
		t.Fatalf("run not registered: %v %v", res, ok)
	}
}

func TestRunWorkflowAITalkUsesGraphInput(t *testing.T) {
	var submitted map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &submitted)
			_, _ = w.Write([]byte(`{"id":"talk-7","status":"IN_QUEUE"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"talk-7","status":"IN_PROGRESS"}`))
	}))
	defer upstream.Close()

	app := &App{
		Config: &infra.Config{},
		Logger: zerolog.Nop(),
		RunPodTalk: runpod.NewClient(runpod.Options{
			APIKey:      "key",
			EndpointID:  "talk-ep",
			EndpointVar: "RUNPOD_AITALK_ENDPOINT_ID",
			BaseURL:     upstream.URL,
		}),
		Jobs: jobs.NewController(nil, jobs.ControllerOptions{
			PollInterval: time.Hour,
			Logger:       zerolog.Nop(),
		}),
	}

	imageBytes := []byte("portrait bytes")
	req := newMultipart().
		field("workflow", "ai-talk").
		file("input_image", "face.png", imageBytes).
		field("speech_text", "hola").
		request(http.MethodPost, "/api/run-workflow")
	rec := httptest.NewRecorder()
	app.RunWorkflow(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}

	input, _ := submitted["input"].(map[string]any)
	graph, ok := input["workflow"].(map[string]any)
	if !ok {
		t.Fatalf("flat input instead of workflow graph: %v", input)
	}
	imageNode, _ := graph["737"].(map[string]any)
	nodeInputs, _ := imageNode["inputs"].(map[string]any)
	wantB64 := base64.StdEncoding.EncodeToString(imageBytes)
	if nodeInputs["base64_data"] != wantB64 {
		t.Fatalf("base64_data = %v, want bare base64 %s", nodeInputs["base64_data"], wantB64)
	}
	speechNode, _ := graph["250"].(map[string]any)
	speechInputs, _ := speechNode["inputs"].(map[string]any)
	if speechInputs["text"] != "hola" {
		t.Fatalf("speech text = %v", speechInputs["text"])
	}
	if speechInputs["voice_id"] != runpod.DefaultTalkVoiceID {
		t.Fatalf("voice_id = %v", speechInputs["voice_id"])
	}
}

func TestRunWorkflowMissingRequiredImage(t *testing.T) {
	app := &App{Config: &infra.Config{}, Logger: zerolog.Nop()}

	req := newMultipart().
		field("workflow", "model-product-fusion").
		file("model_image", "model.png", []byte("png")).
		request(http.MethodPost, "/api/run-workflow")
	rec := httptest.NewRecorder()
	app.RunWorkflow(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "product_image is required") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRunWorkflowUnknownWorkflow(t *testing.T) {
	app := &App{Config: &infra.Config{}, Logger: zerolog.Nop()}

	req := newMultipart().
		field("workflow", "no-such-workflow").
		request(http.MethodPost, "/api/run-workflow")
	rec := httptest.NewRecorder()
	app.RunWorkflow(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rec.Code)
	}
}

func TestRunWorkflowSurfacesUpstreamBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("quota exceeded for deployment"))
	}))
	defer upstream.Close()

	app := &App{
		Config: &infra.Config{},
		Logger: zerolog.Nop(),
		ComfyDeploy: comfydeploy.NewClient(comfydeploy.Options{
			APIKey:       "key",
			DeploymentID: "dep-1",
			BaseURL:      upstream.URL,
		}),
		Jobs: jobs.NewController(nil, jobs.ControllerOptions{Logger: zerolog.Nop()}),
	}

	req := newMultipart().
		field("workflow", "model-product-fusion").
		file("model_image", "a.png", []byte("png")).
		file("product_image", "b.png", []byte("png")).
		request(http.MethodPost, "/api/run-workflow")
	rec := httptest.NewRecorder()
	app.RunWorkflow(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "quota exceeded for deployment") {
		t.Fatalf("upstream body not surfaced: %s", rec.Body.String())
	}
}

func TestRunVellumValidation(t *testing.T) {
	app := &App{Config: &infra.Config{}, Logger: zerolog.Nop()}

	req := newMultipart().
		file("input_image", "in.png", []byte("png")).
		field("strength_model", "1.5").
		field("scale_by", "4").
		request(http.MethodPost, "/api/run-vellum")
	rec := httptest.NewRecorder()
	app.RunVellum(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "strength_model") {
		t.Fatalf("strength: got %d %s", rec.Code, rec.Body.String())
	}

	req = newMultipart().
		file("input_image", "in.png", []byte("png")).
		field("scale_by", "3").
		request(http.MethodPost, "/api/run-vellum")
	rec = httptest.NewRecorder()
	app.RunVellum(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "scale_by") {
		t.Fatalf("scale: got %d %s", rec.Code, rec.Body.String())
	}

	req = newMultipart().
		field("scale_by", "4").
		request(http.MethodPost, "/api/run-vellum")
	rec = httptest.NewRecorder()
	app.RunVellum(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "input_image") {
		t.Fatalf("image: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRunVellumSubmit(t *testing.T) {
	var submitted map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &submitted)
		_, _ = w.Write([]byte(`{"id":"vel-9","status":"IN_QUEUE"}`))
	}))
	defer upstream.Close()

	app := &App{
		Config: &infra.Config{},
		Logger: zerolog.Nop(),
		RunPod: runpod.NewClient(runpod.Options{
			APIKey:     "key",
			EndpointID: "ep-1",
			BaseURL:    upstream.URL,
		}),
	}

	req := newMultipart().
		file("input_image", "in.png", []byte("png")).
		field("scale_by", "8").
		request(http.MethodPost, "/api/run-vellum")
	rec := httptest.NewRecorder()
	app.RunVellum(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"jobId":"vel-9"`) {
		t.Fatalf("missing job id: %s", rec.Body.String())
	}
	input, _ := submitted["input"].(map[string]any)
	if input["strength_model"] != 0.5 {
		t.Fatalf("strength_model default = %v", input["strength_model"])
	}
	if input["scale_by"] != "8" {
		t.Fatalf("scale_by = %v", input["scale_by"])
	}
}

func TestRunAITalkSubmit(t *testing.T) {
	var submitted map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &submitted)
		_, _ = w.Write([]byte(`{"id":"talk-3","status":"IN_QUEUE"}`))
	}))
	defer upstream.Close()

	app := &App{
		Config: &infra.Config{},
		Logger: zerolog.Nop(),
		RunPodTalk: runpod.NewClient(runpod.Options{
			APIKey:      "key",
			EndpointID:  "talk-ep",
			EndpointVar: "RUNPOD_AITALK_ENDPOINT_ID",
			BaseURL:     upstream.URL,
		}),
	}

	req := newMultipart().
		file("input_image", "face.png", []byte("png bytes")).
		field("speech_text", "hello there").
		request(http.MethodPost, "/api/run-ai-talk")
	rec := httptest.NewRecorder()
	app.RunAITalk(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"jobId":"talk-3"`) {
		t.Fatalf("missing job id: %s", rec.Body.String())
	}
	input, _ := submitted["input"].(map[string]any)
	if _, ok := input["workflow"]; !ok {
		t.Fatalf("workflow graph missing: %v", input)
	}
}

func TestRunAITalkRequiresSpeechText(t *testing.T) {
	app := &App{Config: &infra.Config{}, Logger: zerolog.Nop()}

	req := newMultipart().
		file("input_image", "face.png", []byte("png")).
		field("speech_text", "   ").
		request(http.MethodPost, "/api/run-ai-talk")
	rec := httptest.NewRecorder()
	app.RunAITalk(rec, req)

	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "speech_text") {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}
