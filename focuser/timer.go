package focuser

import (
	"sync"
	"time"
)

// IdleTimer is a single-shot, restartable countdown.  At most one firing is
// pending at a time: Start and Reset replace any earlier schedule, and a
// firing that lost the race with Cancel or a restart is dropped.
type IdleTimer struct {
	mu  sync.Mutex
	fn  func()
	t   *time.Timer
	gen uint64
}

// NewIdleTimer returns a stopped timer that calls fn on its own goroutine when it expires
func NewIdleTimer(fn func()) *IdleTimer {
	return &IdleTimer{fn: fn}
}

// Start schedules fn to run once after d, cancelling any pending firing
func (it *IdleTimer) Start(d time.Duration) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stop()
	gen := it.gen
	it.t = time.AfterFunc(d, func() { it.fire(gen) })
}

// Reset is Cancel followed by Start, done atomically
func (it *IdleTimer) Reset(d time.Duration) {
	it.Start(d)
}

// Cancel drops the pending firing, if any
func (it *IdleTimer) Cancel() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stop()
}

// Pending reports if a firing is scheduled and has not started
func (it *IdleTimer) Pending() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.t != nil
}

// stop must be called with mu held.  Bumping gen invalidates a callback
// that time.Timer.Stop was too late to prevent.
func (it *IdleTimer) stop() {
	if it.t != nil {
		it.t.Stop()
		it.t = nil
	}
	it.gen++
}

func (it *IdleTimer) fire(gen uint64) {
	it.mu.Lock()
	if gen != it.gen {
		it.mu.Unlock()
		return
	}
	it.t = nil
	it.gen++
	it.mu.Unlock()
	it.fn()
}
