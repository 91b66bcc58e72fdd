// Package timecache provides a cache for the system clock, to avoid calls to
// time.Now() on hot paths such as per-datagram connection/scrape bookkeeping.
// The cached value is a full time.Time, preserving its monotonic reading, so
// callers can still use it safely with time.Time.Before/After and
// time.Since.
// The package runs a global singleton TimeCache that is updated once a
// second.
package timecache

import (
	"sync"
	"sync/atomic"
	"time"
)

// t is the global TimeCache.
var t *TimeCache

func init() {
	t = New()
	go t.Run(1 * time.Second)
}

// A TimeCache is a cache for the current system time.
type TimeCache struct {
	// clock holds a *time.Time, accessed without locking.
	clock atomic.Pointer[time.Time]

	closed  chan struct{}
	running chan struct{}
	m       sync.Mutex
}

// New returns a new TimeCache instance.
// The TimeCache must be started to update the time.
func New() *TimeCache {
	tc := &TimeCache{
		closed:  make(chan struct{}),
		running: make(chan struct{}),
	}
	now := time.Now()
	tc.clock.Store(&now)
	return tc
}

// Run runs the TimeCache, updating the cached clock value once every interval
// and blocks until Stop is called.
func (t *TimeCache) Run(interval time.Duration) {
	t.m.Lock()
	select {
	case <-t.running:
		panic("Run called multiple times")
	default:
	}
	close(t.running)
	t.m.Unlock()

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-t.closed:
			return
		case now := <-tick.C:
			t.clock.Store(&now)
		}
	}
}

// Stop stops the TimeCache.
// The cached time remains valid but will not be updated anymore.
// A TimeCache can not be restarted. Construct a new one instead.
// Calling Stop again is a no-op.
func (t *TimeCache) Stop() {
	t.m.Lock()
	defer t.m.Unlock()

	select {
	case <-t.closed:
		return
	default:
	}
	close(t.closed)
}

// Now returns the cached time.
func (t *TimeCache) Now() time.Time {
	return *t.clock.Load()
}

// Now calls Now on the global TimeCache instance.
func Now() time.Time {
	return t.Now()
}
