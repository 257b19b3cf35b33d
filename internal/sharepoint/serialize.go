package sharepoint

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// resourceLocks serializes calls that target the same resource key. The
// backing store enforces per-item optimistic concurrency, so overlapping
// writes to one item from this client would race each other; calls to
// distinct keys proceed independently.
//
// Each entry lives only while at least one call holds or awaits it: acquire
// increments the refcount, release decrements and deletes the entry at zero,
// success or failure alike. The per-entry limiter spaces consecutive calls in
// an overlapping chain; once a key goes idle the entry (and its spacing
// history) is discarded.
type resourceLocks struct {
	spacing rate.Limit

	mu      sync.Mutex
	entries map[string]*resourceEntry
}

type resourceEntry struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	refs    int
}

func newResourceLocks(spacing rate.Limit) *resourceLocks {
	return &resourceLocks{
		spacing: spacing,
		entries: make(map[string]*resourceEntry),
	}
}

// acquire blocks until the caller holds the key exclusively and the
// inter-request spacing has elapsed. The returned release must be called
// exactly once when the call completes, regardless of outcome.
func (l *resourceLocks) acquire(ctx context.Context, key string) (release func(), err error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &resourceEntry{limiter: rate.NewLimiter(l.spacing, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	if err := entry.limiter.Wait(ctx); err != nil {
		entry.mu.Unlock()
		l.release(key, entry)
		return nil, err
	}

	return func() {
		entry.mu.Unlock()
		l.release(key, entry)
	}, nil
}

func (l *resourceLocks) release(key string, entry *resourceEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// inFlight reports how many keys currently have outstanding calls.
func (l *resourceLocks) inFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
