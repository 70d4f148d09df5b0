package jobs

import "context"

// PollResult is one provider status answer, already normalized: canonical
// status, extracted assets, and the provider's error message if it reported
// one.
type PollResult struct {
	Status Status
	Assets []MediaAsset
	Err    string
}

// Backend is the contract every provider adapter implements. Each method
// performs exactly one outbound HTTP call; there are no retries at this
// layer, re-polling is the lifecycle controller's job.
type Backend interface {
	// Name identifies the provider in logs and error values.
	Name() string
	// Submit dispatches the request and returns the provider's handle.
	Submit(ctx context.Context, req Request) (Handle, error)
	// PollStatus asks the provider for the current state of a job.
	PollStatus(ctx context.Context, handle Handle) (PollResult, error)
}
