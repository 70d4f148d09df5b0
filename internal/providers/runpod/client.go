// Package runpod adapts the GPU serverless job platform to the canonical
// job backend contract. The platform has no webhook support; status is
// pull-only, with an optional synchronous-wait submission variant.
package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

const providerName = "runpod"

// DefaultSyncTimeout bounds the synchronous-wait variant.
const DefaultSyncTimeout = 5 * time.Minute

// Options configures a client bound to one serverless endpoint.
type Options struct {
	APIKey     string
	EndpointID string
	// EndpointVar names the env var the endpoint came from, for the
	// fail-fast configuration error. Defaults to RUNPOD_ENDPOINT_ID.
	EndpointVar string
	BaseURL     string
	// AssetKind selects the placeholder filename family for extracted
	// outputs; endpoints producing video set extract.KindVideo.
	AssetKind   extract.Kind
	SyncTimeout time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// Client performs HTTP calls against one RunPod serverless endpoint.
type Client struct {
	apiKey      string
	endpointID  string
	endpointVar string
	baseURL     string
	assetKind   extract.Kind
	syncTimeout time.Duration
	httpClient  *http.Client
	logger      zerolog.Logger
}

type jobEnvelope struct {
	Input map[string]any `json:"input"`
}

type statusResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.runpod.ai/v2"
	}
	endpointVar := opts.EndpointVar
	if endpointVar == "" {
		endpointVar = "RUNPOD_ENDPOINT_ID"
	}
	assetKind := opts.AssetKind
	if assetKind == "" {
		assetKind = extract.KindImage
	}
	syncTimeout := opts.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = DefaultSyncTimeout
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		endpointID:  strings.TrimSpace(opts.EndpointID),
		endpointVar: endpointVar,
		baseURL:     baseURL,
		assetKind:   assetKind,
		syncTimeout: syncTimeout,
		httpClient:  httpClient,
		logger:      opts.Logger,
	}
}

// Name implements jobs.Backend.
func (c *Client) Name() string { return providerName }

func (c *Client) checkConfig() error {
	if c.apiKey == "" {
		return &jobs.ConfigurationError{Provider: providerName, Missing: "RUNPOD_API_KEY"}
	}
	if c.endpointID == "" {
		return &jobs.ConfigurationError{Provider: providerName, Missing: c.endpointVar}
	}
	return nil
}

// Submit dispatches an async job built from canonical slots. Image slots
// keep the data-URI prefix; this endpoint family expects it.
func (c *Client) Submit(ctx context.Context, req jobs.Request) (jobs.Handle, error) {
	return c.SubmitInput(ctx, payload.Inputs(req.Slots, payload.KeepDataURIPrefix))
}

// SubmitInput dispatches an async job with an already-built input object,
// for callers that template a workflow graph themselves.
func (c *Client) SubmitInput(ctx context.Context, input map[string]any) (jobs.Handle, error) {
	if err := c.checkConfig(); err != nil {
		return "", err
	}
	raw, err := c.post(ctx, c.endpointURL("run"), jobEnvelope{Input: input})
	if err != nil {
		return "", err
	}
	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &jobs.ProtocolError{Provider: providerName, Reason: "submission response is not JSON"}
	}
	if decoded.ID == "" {
		return "", &jobs.ProtocolError{Provider: providerName, Reason: "submission response missing job id"}
	}
	c.logger.Info().Str("job_id", decoded.ID).Str("endpoint_id", c.endpointID).Msg("runpod: job started")
	return jobs.Handle(decoded.ID), nil
}

// RunSync submits and waits for the result in one call, bounded by the
// configured deadline. Exceeding it yields a TimeoutError; the upstream job
// state is then unknown and possibly still running.
func (c *Client) RunSync(ctx context.Context, input map[string]any) (jobs.PollResult, error) {
	if err := c.checkConfig(); err != nil {
		return jobs.PollResult{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	defer cancel()

	raw, err := c.post(ctx, c.endpointURL("runsync"), jobEnvelope{Input: input})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return jobs.PollResult{}, &jobs.TimeoutError{Provider: providerName}
		}
		return jobs.PollResult{}, err
	}
	return c.decodeStatus(raw)
}

// PollStatus fetches and normalizes the current job state.
func (c *Client) PollStatus(ctx context.Context, handle jobs.Handle) (jobs.PollResult, error) {
	if err := c.checkConfig(); err != nil {
		return jobs.PollResult{}, err
	}
	raw, err := c.get(ctx, c.endpointURL("status/"+string(handle)))
	if err != nil {
		return jobs.PollResult{}, err
	}
	return c.decodeStatus(raw)
}

// Cancel asks the platform to stop a job. Never issued automatically;
// tearing down a watch loop does not cancel upstream work.
func (c *Client) Cancel(ctx context.Context, handle jobs.Handle) error {
	if err := c.checkConfig(); err != nil {
		return err
	}
	_, err := c.post(ctx, c.endpointURL("cancel/"+string(handle)), struct{}{})
	if err != nil {
		return err
	}
	c.logger.Info().Str("job_id", string(handle)).Msg("runpod: job cancelled")
	return nil
}

func (c *Client) decodeStatus(raw []byte) (jobs.PollResult, error) {
	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return jobs.PollResult{}, &jobs.ProtocolError{Provider: providerName, Reason: "status response is not JSON"}
	}
	var output any
	if len(decoded.Output) > 0 {
		_ = json.Unmarshal(decoded.Output, &output)
	}
	return jobs.PollResult{
		Status: MapStatus(decoded.Status),
		Assets: extract.Assets(output, c.assetKind),
		Err:    decoded.Error,
	}, nil
}

// MapStatus maps the platform's status vocabulary onto the canonical set.
// Unrecognized values default to running, never to a terminal state.
func MapStatus(raw string) jobs.Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN_QUEUE":
		return jobs.StatusQueued
	case "IN_PROGRESS":
		return jobs.StatusRunning
	case "COMPLETED":
		return jobs.StatusCompleted
	case "FAILED", "CANCELLED":
		return jobs.StatusFailed
	default:
		return jobs.StatusRunning
	}
}

func (c *Client) endpointURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.endpointID, path)
}

func (c *Client) post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("runpod: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("runpod: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("runpod: build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runpod: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("runpod: read response: %w", err)
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
