// Package comfydeploy adapts the workflow-orchestration provider to the
// canonical job backend contract. It speaks the provider's REST API
// directly: queue a deployment run, fetch run status, and push webhooks
// handled elsewhere share this package's status vocabulary.
package comfydeploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stella/internal/jobs"
	"stella/internal/jobs/extract"
	"stella/internal/providers/payload"
)

const providerName = "comfydeploy"

// Options configures the ComfyDeploy client.
type Options struct {
	APIKey string
	// DeploymentID is the default deployment when the request does not
	// name one.
	DeploymentID   string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the ComfyDeploy API.
type Client struct {
	apiKey       string
	deploymentID string
	baseURL      string
	httpClient   *http.Client
	logger       zerolog.Logger
}

type queueRequest struct {
	DeploymentID string         `json:"deployment_id"`
	Inputs       map[string]any `json:"inputs"`
	Webhook      string         `json:"webhook,omitempty"`
}

type queueResponse struct {
	RunID string `json:"run_id"`
}

type runResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Outputs []struct {
		Data json.RawMessage `json:"data"`
	} `json:"outputs"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.comfydeploy.com/api"
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		deploymentID: strings.TrimSpace(opts.DeploymentID),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       opts.Logger,
	}
}

// Name implements jobs.Backend.
func (c *Client) Name() string { return providerName }

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool { return c.apiKey != "" }

// Submit queues one deployment run. Image slots are encoded as full
// base64 data URIs; this provider expects the prefix.
func (c *Client) Submit(ctx context.Context, req jobs.Request) (jobs.Handle, error) {
	if c.apiKey == "" {
		return "", &jobs.ConfigurationError{Provider: providerName, Missing: "COMFYDEPLOY_API_KEY"}
	}
	deploymentID := strings.TrimSpace(req.Workflow)
	if deploymentID == "" {
		deploymentID = c.deploymentID
	}
	if deploymentID == "" {
		return "", &jobs.ConfigurationError{Provider: providerName, Missing: "COMFYDEPLOY_DEPLOYMENT_ID"}
	}

	body := queueRequest{
		DeploymentID: deploymentID,
		Inputs:       payload.Inputs(req.Slots, payload.KeepDataURIPrefix),
		Webhook:      req.WebhookURL,
	}
	raw, err := c.post(ctx, c.baseURL+"/run/deployment/queue", body)
	if err != nil {
		return "", err
	}

	var decoded queueResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &jobs.ProtocolError{Provider: providerName, Reason: "submission response is not JSON"}
	}
	if decoded.RunID == "" {
		return "", &jobs.ProtocolError{Provider: providerName, Reason: "submission response missing run_id"}
	}
	c.logger.Info().Str("run_id", decoded.RunID).Str("deployment_id", deploymentID).Msg("comfydeploy: run queued")
	return jobs.Handle(decoded.RunID), nil
}

// PollStatus fetches the current run state and normalizes it. One live
// upstream request per call, nothing cached.
func (c *Client) PollStatus(ctx context.Context, handle jobs.Handle) (jobs.PollResult, error) {
	if c.apiKey == "" {
		return jobs.PollResult{}, &jobs.ConfigurationError{Provider: providerName, Missing: "COMFYDEPLOY_API_KEY"}
	}
	raw, err := c.get(ctx, fmt.Sprintf("%s/run/%s", c.baseURL, handle))
	if err != nil {
		return jobs.PollResult{}, err
	}

	var decoded runResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return jobs.PollResult{}, &jobs.ProtocolError{Provider: providerName, Reason: "status response is not JSON"}
	}

	assets := []jobs.MediaAsset{}
	for _, output := range decoded.Outputs {
		var data any
		if err := json.Unmarshal(output.Data, &data); err != nil {
			continue
		}
		assets = append(assets, extract.Assets(data, extract.KindImage)...)
	}
	return jobs.PollResult{Status: MapStatus(decoded.Status), Assets: assets, Err: decoded.Error}, nil
}

// MapStatus maps the provider's status vocabulary onto the canonical set.
// Unrecognized values default to running, never to a terminal state.
func MapStatus(raw string) jobs.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "not-started", "queued":
		return jobs.StatusQueued
	case "started", "running", "uploading":
		return jobs.StatusRunning
	case "success":
		return jobs.StatusCompleted
	case "failed", "timeout":
		return jobs.StatusFailed
	default:
		return jobs.StatusRunning
	}
}

func (c *Client) post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("comfydeploy: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("comfydeploy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("comfydeploy: build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("comfydeploy: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("comfydeploy: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &jobs.UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	return raw, nil
}

var _ jobs.Backend = (*Client)(nil)
