package session

import (
	"sync"
	"time"
)

// debouncer coalesces resize requests: each new request overwrites the
// pending one, and a timer flushes the latest after the quiet period. During
// a continuous layout animation the backend sees one resize per quiet window
// instead of one per frame.
type debouncer struct {
	quiet time.Duration
	flush func(Dimensions)

	mu      sync.Mutex
	pending *Dimensions
	timer   *time.Timer
	stopped bool
}

func newDebouncer(quiet time.Duration, flush func(Dimensions)) *debouncer {
	return &debouncer{quiet: quiet, flush: flush}
}

// request records d as the pending dimensions and (re)arms the quiet-period
// timer.
func (d *debouncer) request(dims Dimensions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = &dims
	if d.timer == nil {
		d.timer = time.AfterFunc(d.quiet, d.fire)
	} else {
		d.timer.Reset(d.quiet)
	}
}

func (d *debouncer) fire() {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	stopped := d.stopped
	d.mu.Unlock()

	if stopped || pending == nil {
		return
	}
	d.flush(*pending)
}

// stop drops any pending request and prevents further flushes.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}
