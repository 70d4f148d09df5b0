// Package webhook receives push notifications from the orchestration
// provider and keeps them, briefly, where the lifecycle controller can see
// them. The store is a best-effort cache keyed by run handle, not a durable
// queue: records evict after a fixed retention window whether or not anyone
// ever read them.
package webhook

import (
	"context"
	"sync"
	"time"

	"stella/internal/jobs"
)

// RetentionTTL is how long a received record stays queryable. Redelivery
// re-arms the window; that imprecision is accepted.
const RetentionTTL = time.Hour

// RecordStore is the storage contract for normalized webhook records. The
// memory implementation suits a single process; production deployments can
// back it with an external cache without touching the controller.
type RecordStore interface {
	// Get returns the record for a handle, and whether one exists. A
	// missing record is a normal state during the queued/running window.
	Get(ctx context.Context, handle jobs.Handle) (jobs.Result, bool, error)
	// Upsert stores or overwrites the record and (re)arms its TTL.
	Upsert(ctx context.Context, rec jobs.Result, ttl time.Duration) error
	// Delete removes the record if present.
	Delete(ctx context.Context, handle jobs.Handle) error
}

type memoryEntry struct {
	rec      jobs.Result
	deadline time.Time
}

// MemoryStore is the in-process RecordStore. Expiry is lazy on read with a
// periodic sweep so abandoned handles do not accumulate.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[jobs.Handle]memoryEntry
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its sweep loop.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[jobs.Handle]memoryEntry),
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) Get(_ context.Context, handle jobs.Handle) (jobs.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[handle]
	if !ok {
		return jobs.Result{}, false, nil
	}
	if time.Now().After(entry.deadline) {
		delete(s.entries, handle)
		return jobs.Result{}, false, nil
	}
	return entry.rec, true, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec jobs.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = RetentionTTL
	}
	s.mu.Lock()
	s.entries[rec.Handle] = memoryEntry{rec: rec, deadline: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, handle jobs.Handle) error {
	s.mu.Lock()
	delete(s.entries, handle)
	s.mu.Unlock()
	return nil
}

// Close stops the sweep loop.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for handle, entry := range s.entries {
				if now.After(entry.deadline) {
					delete(s.entries, handle)
				}
			}
			s.mu.Unlock()
		}
	}
}

var _ RecordStore = (*MemoryStore)(nil)
