package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flushRecorder collects debouncer flushes.
type flushRecorder struct {
	mu      sync.Mutex
	flushed []Dimensions
}

func (r *flushRecorder) record(d Dimensions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed = append(r.flushed, d)
}

func (r *flushRecorder) snapshot() []Dimensions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Dimensions(nil), r.flushed...)
}

func TestDebouncer_FlushesLatestRequest(t *testing.T) {
	rec := &flushRecorder{}
	d := newDebouncer(10*time.Millisecond, rec.record)
	defer d.stop()

	// A burst of requests within the quiet period coalesces into the last.
	d.request(Dimensions{Cols: 80, Rows: 24})
	d.request(Dimensions{Cols: 100, Rows: 30})
	d.request(Dimensions{Cols: 120, Rows: 40})

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, Dimensions{Cols: 120, Rows: 40}, rec.snapshot()[0])
}

func TestDebouncer_SeparateBurstsFlushSeparately(t *testing.T) {
	rec := &flushRecorder{}
	d := newDebouncer(5*time.Millisecond, rec.record)
	defer d.stop()

	d.request(Dimensions{Cols: 80, Rows: 24})
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 2*time.Millisecond)

	d.request(Dimensions{Cols: 90, Rows: 28})
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, time.Second, 2*time.Millisecond)

	assert.Equal(t, Dimensions{Cols: 90, Rows: 28}, rec.snapshot()[1])
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	rec := &flushRecorder{}
	d := newDebouncer(20*time.Millisecond, rec.record)

	d.request(Dimensions{Cols: 80, Rows: 24})
	d.stop()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "stopped debouncer must not flush")

	// Requests after stop are ignored too.
	d.request(Dimensions{Cols: 10, Rows: 10})
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
