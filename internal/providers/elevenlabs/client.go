// Package elevenlabs fetches the voice catalog used by the talking-head
// form's voice selector.
package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stella/internal/jobs"
)

const providerName = "elevenlabs"

// Voice is one selectable voice, trimmed to the fields the form needs.
type Voice struct {
	VoiceID    string            `json:"voice_id"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Labels     map[string]string `json:"labels,omitempty"`
	PreviewURL string            `json:"preview_url,omitempty"`
}

// Options configures the client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client performs HTTP calls against the ElevenLabs API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io/v1"
	}
	return &Client{apiKey: strings.TrimSpace(opts.APIKey), baseURL: baseURL, httpClient: httpClient}
}

// Voices lists the available voices.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	if c.apiKey == "" {
		return nil, &jobs.ConfigurationError{Provider: providerName, Missing: "ELEVENLABS_API_KEY"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &jobs.UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var decoded struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &jobs.ProtocolError{Provider: providerName, Reason: "voices response is not JSON"}
	}
	return decoded.Voices, nil
}
