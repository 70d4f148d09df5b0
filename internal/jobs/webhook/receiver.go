package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stella/internal/jobs"
	"stella/internal/jobs/extract"
)

// pushPayload is the orchestration provider's webhook body. Only the fields
// we consume are declared; each outputs entry wraps a free-form data object
// that goes through the extractor.
type pushPayload struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Outputs []struct {
		Data json.RawMessage `json:"data"`
	} `json:"outputs"`
}

// Receiver normalizes provider push notifications into canonical records
// and upserts them into the store. Ingress is best-effort: a recognized
// run_id is enough to store something useful; everything else degrades to
// a non-terminal record rather than an error.
type Receiver struct {
	store     RecordStore
	mapStatus func(string) jobs.Status
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewReceiver builds a Receiver. mapStatus is the provider's vocabulary
// mapping, owned by its adapter.
func NewReceiver(store RecordStore, mapStatus func(string) jobs.Status, logger zerolog.Logger) *Receiver {
	return &Receiver{store: store, mapStatus: mapStatus, ttl: RetentionTTL, logger: logger}
}

// Receive parses one delivery and upserts the normalized record. Redelivery
// overwrites the existing record in place, never duplicating assets or
// rows, and re-arms the retention window.
func (r *Receiver) Receive(ctx context.Context, body []byte) (jobs.Result, error) {
	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return jobs.Result{}, fmt.Errorf("webhook: decode payload: %w", err)
	}
	if payload.RunID == "" {
		return jobs.Result{}, fmt.Errorf("webhook: payload missing run_id")
	}

	assets := []jobs.MediaAsset{}
	for _, output := range payload.Outputs {
		var data any
		if err := json.Unmarshal(output.Data, &data); err != nil {
			continue
		}
		assets = append(assets, extract.Assets(data, extract.KindImage)...)
	}

	rec := jobs.Result{
		Handle: jobs.Handle(payload.RunID),
		Status: r.mapStatus(payload.Status),
		Err:    payload.Error,
	}
	if len(assets) > 0 {
		rec.Assets = assets
	}

	if err := r.store.Upsert(ctx, rec, r.ttl); err != nil {
		return jobs.Result{}, err
	}
	r.logger.Debug().
		Str("run_id", payload.RunID).
		Str("status", string(rec.Status)).
		Int("assets", len(assets)).
		Msg("webhook: stored record")
	return rec, nil
}

// Lookup returns the stored record for a handle. ok is false while no
// delivery has arrived yet; callers render that as a pending sentinel, not
// an error.
func (r *Receiver) Lookup(ctx context.Context, handle jobs.Handle) (jobs.Result, bool) {
	rec, ok, err := r.store.Get(ctx, handle)
	if err != nil {
		r.logger.Error().Err(err).Str("run_id", string(handle)).Msg("webhook: store read failed")
		return jobs.Result{}, false
	}
	return rec, ok
}
