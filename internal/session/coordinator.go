package session

import (
	"context"
	"sync"
	"time"

	"github.com/loomterm/loom/internal/log"
	"github.com/loomterm/loom/internal/pubsub"
)

// Phase is the lifecycle state of a coordinator.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSpawning
	PhaseReattaching
	PhaseRunning
	PhaseClosing
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSpawning:
		return "spawning"
	case PhaseReattaching:
		return "reattaching"
	case PhaseRunning:
		return "running"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultResizeDebounce is the quiet period before a pending resize is
// forwarded to the backend. Layout events fire far faster than a PTY should
// be resized.
const DefaultResizeDebounce = 40 * time.Millisecond

// Config describes the terminal pane a coordinator manages. The pane id
// doubles as the backend session id, so a pane restored after a detach
// hand-off binds to the same session.
type Config struct {
	TabID  string
	PaneID string
	Shell  string
	Distro string
	Cwd    string

	// Reattach binds to the already-running session instead of spawning.
	Reattach bool

	Backend Backend
	Events  *pubsub.Broker[Event]

	// ResizeDebounce overrides DefaultResizeDebounce when positive.
	ResizeDebounce time.Duration
}

// Coordinator manages one pane's session from first mount to teardown.
// Start is single-shot; the rendering layer may mount the same pane twice
// during a re-render and the second trigger must be a no-op.
type Coordinator struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	resize *debouncer

	mu        sync.Mutex
	phase     Phase
	started   bool
	closed    bool
	detached  bool
	spawnErr  error
	dims      Dimensions
	wantDims  Dimensions
	wantAsked bool
	cwd       string
}

// New creates a coordinator in PhaseIdle. Nothing runs until Start.
func New(cfg Config) *Coordinator {
	if cfg.ResizeDebounce <= 0 {
		cfg.ResizeDebounce = DefaultResizeDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		phase:  PhaseIdle,
		cwd:    cfg.Cwd,
	}
	c.resize = newDebouncer(cfg.ResizeDebounce, c.flushResize)
	return c
}

// Start launches the session goroutine. Repeated calls, and calls after
// Close, are no-ops.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run()
}

// PaneID returns the pane this coordinator serves.
func (c *Coordinator) PaneID() string { return c.cfg.PaneID }

// Phase returns the current lifecycle phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Err returns the spawn error, if the session failed to start. The error is
// surfaced in the pane's own display area, never globally.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawnErr
}

// Cwd returns the last known working directory.
func (c *Coordinator) Cwd() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cwd
}

// Dims returns the last negotiated dimensions.
func (c *Coordinator) Dims() Dimensions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dims
}

// Write forwards user keystrokes to the session.
func (c *Coordinator) Write(p []byte) {
	if c.Phase() != PhaseRunning {
		return
	}
	c.cfg.Backend.Write(c.cfg.PaneID, p)
}

// Resize records the latest requested dimensions and schedules a debounced
// backend resize. Rapid consecutive requests coalesce into the last one.
func (c *Coordinator) Resize(cols, rows int) {
	c.mu.Lock()
	c.dims = Dimensions{Cols: cols, Rows: rows}
	c.wantDims = c.dims
	c.wantAsked = true
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.resize.request(Dimensions{Cols: cols, Rows: rows})
}

// Close tears the coordinator down. When detached is true the pane's session
// ownership moved to another window, so the external process is left running;
// every other removal reason terminates it.
func (c *Coordinator) Close(detached bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.detached = detached
	started := c.started
	c.phase = PhaseClosing
	c.mu.Unlock()

	c.publishPhase(PhaseClosing, nil)
	c.resize.stop()
	c.cancel()
	if started {
		<-c.done
	}

	if !detached {
		c.cfg.Backend.Terminate(c.cfg.PaneID)
	}

	c.setPhase(PhaseClosed, nil)
}

// run is the session goroutine: bring the session up, then pump output until
// cancellation or stream end.
func (c *Coordinator) run() {
	defer close(c.done)

	if c.cfg.Reattach {
		if !c.reattach() {
			return
		}
	} else if !c.spawn() {
		return
	}

	c.pumpOutput()
}

// spawn starts a fresh session. Returns false when the coordinator should
// stop (failure or logical cancellation).
func (c *Coordinator) spawn() bool {
	c.setPhase(PhaseSpawning, nil)

	dims, err := c.cfg.Backend.Spawn(c.ctx, c.cfg.PaneID, c.cfg.Shell, c.cfg.Distro, c.cfg.Cwd)
	if err != nil {
		if c.ctx.Err() != nil {
			// Cancelled by Close; not a spawn failure.
			return false
		}
		// Terminal for this pane: no automatic retry, error shown inline.
		log.ErrorErr(log.CatSession, "spawn failed", err, "pane", c.cfg.PaneID, "shell", c.cfg.Shell)
		c.mu.Lock()
		c.spawnErr = err
		c.mu.Unlock()
		c.setPhase(PhaseClosed, err)
		return false
	}

	// The pane may have been closed while the spawn was in flight (tab
	// closed before completion). The request is not cancellable mid-flight,
	// so clean up after the fact instead of leaking the fresh session.
	//
	// A resize requested during the spawn was gated off, and the backend
	// still has the geometry it acked. Keep the UI's request over the ack
	// and forward it once the phase opens, otherwise the pane stays
	// mis-sized until the next layout change.
	c.mu.Lock()
	closedMeanwhile := c.closed
	detached := c.detached
	var relay Dimensions
	relayNeeded := false
	if !closedMeanwhile {
		if c.wantAsked && c.wantDims != dims {
			c.dims = c.wantDims
			relay = c.wantDims
			relayNeeded = true
		} else {
			c.dims = dims
		}
	}
	c.mu.Unlock()

	if closedMeanwhile {
		if !detached {
			log.Warn(log.CatSession, "spawn completed after close, terminating", "pane", c.cfg.PaneID)
			c.cfg.Backend.Terminate(c.cfg.PaneID)
		}
		return false
	}

	c.setPhase(PhaseRunning, nil)
	if relayNeeded {
		c.flushResize(relay)
	}
	return true
}

// reattach binds to the pre-existing session and replays its scrollback.
// A missing buffer is not an error: the session runs with empty scrollback.
func (c *Coordinator) reattach() bool {
	c.setPhase(PhaseReattaching, nil)

	buf, err := c.cfg.Backend.Reattach(c.ctx, c.cfg.PaneID)
	if err != nil {
		if c.ctx.Err() != nil {
			return false
		}
		log.Warn(log.CatSession, "reattach buffer unavailable", "pane", c.cfg.PaneID, "error", err)
		buf = nil
	}

	c.mu.Lock()
	closedMeanwhile := c.closed
	relay := c.wantDims
	relayNeeded := c.wantAsked
	c.mu.Unlock()
	if closedMeanwhile {
		return false
	}

	if len(buf) > 0 {
		c.publish(Event{Type: EventOutput, Output: buf})
	}

	c.setPhase(PhaseRunning, nil)
	if relayNeeded {
		c.flushResize(relay)
	}
	return true
}

// pumpOutput applies output chunks to the display stream and scans them for
// working-directory markers. Per-chunk work is O(len(chunk)) so output
// delivery is never stalled.
func (c *Coordinator) pumpOutput() {
	ch := c.cfg.Backend.Subscribe(c.ctx, c.cfg.PaneID)
	var scanner cwdScanner

	for {
		select {
		case <-c.ctx.Done():
			return
		case chunk, ok := <-ch:
			if !ok {
				return
			}
			c.publish(Event{Type: EventOutput, Output: chunk})
			for _, dir := range scanner.scan(chunk) {
				c.mu.Lock()
				c.cwd = dir
				c.mu.Unlock()
				log.Debug(log.CatSession, "cwd change", "pane", c.cfg.PaneID, "cwd", dir)
				c.publish(Event{Type: EventCwd, Cwd: dir})
			}
		}
	}
}

// flushResize is the debouncer's flush target. Resize failures are logged and
// swallowed; the next layout change corrects them.
func (c *Coordinator) flushResize(d Dimensions) {
	if c.Phase() != PhaseRunning {
		return
	}
	if err := c.cfg.Backend.Resize(c.cfg.PaneID, d.Cols, d.Rows); err != nil {
		log.Warn(log.CatSession, "resize failed", "pane", c.cfg.PaneID, "cols", d.Cols, "rows", d.Rows, "error", err)
	}
}

func (c *Coordinator) setPhase(p Phase, err error) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	c.publishPhase(p, err)
}

func (c *Coordinator) publishPhase(p Phase, err error) {
	c.publish(Event{Type: EventPhase, Phase: p, Err: err})
}

func (c *Coordinator) publish(ev Event) {
	if c.cfg.Events == nil {
		return
	}
	ev.TabID = c.cfg.TabID
	ev.PaneID = c.cfg.PaneID
	c.cfg.Events.Publish(pubsub.UpdatedEvent, ev)
}
