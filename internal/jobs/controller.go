package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is the cadence of the status race.
const DefaultPollInterval = 3 * time.Second

// DefaultMaxWait bounds how long a run is watched before it is declared
// failed. The upstream job itself is never cancelled by the watcher.
const DefaultMaxWait = 30 * time.Minute

// DefaultResultRetention is how long a terminal result stays readable
// before it is dropped from the registry. Same window as the webhook
// record store, so both views of a finished run expire together.
const DefaultResultRetention = time.Hour

// WebhookSource answers "has a push notification arrived for this handle".
// Absence is a normal state, not an error.
type WebhookSource interface {
	Lookup(ctx context.Context, handle Handle) (Result, bool)
}

// ControllerOptions tune the lifecycle controller.
type ControllerOptions struct {
	// PollInterval between status ticks; DefaultPollInterval when zero.
	PollInterval time.Duration
	// MaxWait before a still-unfinished run is latched as failed; zero
	// means DefaultMaxWait, negative disables the bound.
	MaxWait time.Duration
	// ResultRetention before a terminal result is evicted from the
	// registry; zero means DefaultResultRetention, negative keeps results
	// forever.
	ResultRetention time.Duration
	Logger          zerolog.Logger
}

// Controller runs the client-side job state machine: it submits a job, then
// races the webhook source against the polling source at a fixed cadence
// until one of them reports a terminal state. First terminal answer wins
// and latches; the webhook source is consulted first on every tick, so it
// wins ties. Each watched run has its own goroutine; the only shared state
// is the result registry.
type Controller struct {
	webhooks  WebhookSource
	interval  time.Duration
	maxWait   time.Duration
	retention time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	results map[Handle]Result
	cancels map[Handle]context.CancelFunc
}

// NewController builds a Controller. webhooks may be nil for deployments
// where every backend is poll-only.
func NewController(webhooks WebhookSource, opts ControllerOptions) *Controller {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxWait := opts.MaxWait
	if maxWait == 0 {
		maxWait = DefaultMaxWait
	}
	retention := opts.ResultRetention
	if retention == 0 {
		retention = DefaultResultRetention
	}
	return &Controller{
		webhooks:  webhooks,
		interval:  interval,
		maxWait:   maxWait,
		retention: retention,
		logger:    opts.Logger,
		results:   make(map[Handle]Result),
		cancels:   make(map[Handle]context.CancelFunc),
	}
}

// Start submits the request and, on success, begins watching the run. A
// submission error is returned to the caller as-is and no watch loop is
// ever started. The watch loop outlives the submitting request's context.
func (c *Controller) Start(ctx context.Context, backend Backend, req Request) (Handle, error) {
	handle, err := backend.Submit(ctx, req)
	if err != nil {
		return "", err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.results[handle] = Result{Handle: handle, Status: StatusQueued}
	c.cancels[handle] = cancel
	c.mu.Unlock()

	go c.watch(watchCtx, backend, handle)
	return handle, nil
}

// Lookup returns the current converged view of a run.
func (c *Controller) Lookup(handle Handle) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[handle]
	return res, ok
}

// Cancel stops the watch loop for a handle. It does not cancel the
// upstream job; an explicit provider cancel call is the caller's decision.
func (c *Controller) Cancel(handle Handle) {
	c.mu.Lock()
	cancel := c.cancels[handle]
	delete(c.cancels, handle)
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) watch(ctx context.Context, backend Backend, handle Handle) {
	defer c.Cancel(handle)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var deadline time.Time
	if c.maxWait > 0 {
		deadline = time.Now().Add(c.maxWait)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.tick(ctx, backend, handle) {
				return
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				c.adopt(handle, Result{
					Handle: handle,
					Status: StatusFailed,
					Err:    fmt.Sprintf("timed out waiting for job %s", handle),
				})
				return
			}
		}
	}
}

// tick runs one round of the race: webhook first, then the live poll.
// Returns true once a terminal result was adopted. Source errors are logged
// and swallowed; a transient failure must never abort a job that is still
// genuinely in flight.
func (c *Controller) tick(ctx context.Context, backend Backend, handle Handle) bool {
	if c.webhooks != nil {
		if rec, ok := c.webhooks.Lookup(ctx, handle); ok {
			if rec.Status.Terminal() {
				c.adopt(handle, rec)
				return true
			}
			c.advance(handle, rec.Status)
		}
	}

	res, err := backend.PollStatus(ctx, handle)
	if err != nil {
		c.logger.Warn().Err(err).Str("run_id", string(handle)).Msg("poll tick failed, will retry")
		return false
	}
	if res.Status.Terminal() {
		c.adopt(handle, Result{Handle: handle, Status: res.Status, Assets: res.Assets, Err: res.Err})
		return true
	}
	c.advance(handle, res.Status)
	return false
}

// adopt latches a terminal result. Once terminal, later reports for the
// same handle are discarded, even contradictory ones.
func (c *Controller) adopt(handle Handle, rec Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.results[handle]
	if ok && cur.Status.Terminal() {
		return
	}
	rec.Handle = handle
	c.results[handle] = rec
	if c.retention > 0 {
		time.AfterFunc(c.retention, func() { c.evict(handle) })
	}
	c.logger.Info().
		Str("run_id", string(handle)).
		Str("status", string(rec.Status)).
		Int("assets", len(rec.Assets)).
		Msg("run reached terminal state")
}

// evict drops a terminal result once its retention window lapses, so the
// registry does not grow by one entry per submission for the life of the
// process. Non-terminal entries are never evicted.
func (c *Controller) evict(handle Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.results[handle]; ok && cur.Status.Terminal() {
		delete(c.results, handle)
	}
}

// advance moves a non-terminal run forward for progress indication only;
// it never moves backwards and never touches a terminal result.
func (c *Controller) advance(handle Handle, status Status) {
	if status.Terminal() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.results[handle]
	if !ok || cur.Status.Terminal() {
		return
	}
	cur.Status = MoreAdvanced(cur.Status, status)
	c.results[handle] = cur
}
