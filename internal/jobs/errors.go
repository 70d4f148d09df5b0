package jobs

import "fmt"

// ConfigurationError indicates required provider credentials or endpoint
// identifiers are absent from the environment. Fatal for the call, never
// retried.
type ConfigurationError struct {
	Provider string
	Missing  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s is not configured", e.Provider, e.Missing)
}

// UpstreamError is a non-2xx response from a provider. Body carries the raw
// response so the caller can surface the provider's own message verbatim.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ProtocolError is a response we could not make sense of: non-JSON body,
// or a payload missing the fields the contract promises (e.g. no handle
// on submission).
type ProtocolError struct {
	Provider string
	Reason   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %s", e.Provider, e.Reason)
}

// TimeoutError is raised only by synchronous-wait call variants when the
// configured deadline elapses. The upstream job state is unknown and may
// still be running.
type TimeoutError struct {
	Provider string
	Handle   Handle
}

func (e *TimeoutError) Error() string {
	if e.Handle != "" {
		return fmt.Sprintf("%s: timed out waiting for job %s", e.Provider, e.Handle)
	}
	return fmt.Sprintf("%s: request timed out", e.Provider)
}
