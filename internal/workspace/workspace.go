// Package workspace owns the registry of open tabs: each tab's pane tree,
// its active pane, and the session coordinator behind every terminal leaf.
// All structural mutations go through here so the tree, the active-pane
// tracker, and the live coordinator set change atomically.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomterm/loom/internal/layout"
	"github.com/loomterm/loom/internal/log"
	"github.com/loomterm/loom/internal/pubsub"
	"github.com/loomterm/loom/internal/session"
)

// tab is one open tab's mutable state. Guarded by Workspace.mu.
type tab struct {
	id     string
	root   layout.Node
	active string
	coords map[string]*session.Coordinator
}

// Workspace is the single owner of per-tab pane state. Structural operations
// on the same tab apply in call order; operations on different tabs are
// independent.
type Workspace struct {
	backend       session.Backend
	events        *pubsub.Broker[Event]
	sessionEvents *pubsub.Broker[session.Event]
	debounce      time.Duration
	tracer        trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	tabs map[string]*tab
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithResizeDebounce sets the quiet period for coordinator resize debouncing.
func WithResizeDebounce(d time.Duration) Option {
	return func(w *Workspace) { w.debounce = d }
}

// WithTracer enables spans around structural operations.
func WithTracer(tracer trace.Tracer) Option {
	return func(w *Workspace) { w.tracer = tracer }
}

// New creates a workspace over the given backend and starts the goroutine
// that folds session cwd reports back into the tree.
func New(backend session.Backend, opts ...Option) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		backend:       backend,
		events:        pubsub.NewBroker[Event](),
		sessionEvents: pubsub.NewBroker[session.Event](),
		tabs:          make(map[string]*tab),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.watchCwd()
	return w
}

// Events returns the broker carrying workspace change events.
func (w *Workspace) Events() *pubsub.Broker[Event] { return w.events }

// SessionEvents returns the broker carrying per-pane session events (output,
// phase, cwd).
func (w *Workspace) SessionEvents() *pubsub.Broker[session.Event] { return w.sessionEvents }

// OpenTab registers a tab with a single terminal pane and spawns its session.
func (w *Workspace) OpenTab(tabID, shell, distro, cwd string) Snapshot {
	defer w.span("workspace.open_tab", tabID, "")()

	root, active := layout.Initialize(shell, distro, cwd)
	return w.registerTab(tabID, root, active)
}

// RestoreTab registers a tab around a pane detached from another window. The
// pane keeps its id and reattaches to its running session instead of
// spawning.
func (w *Workspace) RestoreTab(tabID, paneID, shell, distro, cwd string) Snapshot {
	defer w.span("workspace.restore_tab", tabID, paneID)()

	root, active := layout.Restore(paneID, shell, distro, cwd)
	return w.registerTab(tabID, root, active)
}

// OpenTabTree registers a tab around a previously saved pane tree and spawns
// a fresh session for every terminal in it. The first leaf becomes active.
func (w *Workspace) OpenTabTree(tabID string, root layout.Node) (Snapshot, error) {
	defer w.span("workspace.open_tab_tree", tabID, "")()

	leaves := layout.CollectLeafIDs(root)
	if len(leaves) == 0 {
		return Snapshot{}, fmt.Errorf("open tab %s: tree has no terminals: %w", tabID, layout.ErrNodeNotFound)
	}
	return w.registerTab(tabID, root, leaves[0]), nil
}

func (w *Workspace) registerTab(tabID string, root layout.Node, active string) Snapshot {
	w.mu.Lock()
	if old, ok := w.tabs[tabID]; ok {
		// Replacing a live tab would orphan its sessions; tear it down
		// first.
		log.Warn(log.CatWorkspace, "tab id reused, closing previous", "tab", tabID)
		w.teardownLocked(old, "")
	}
	t := &tab{id: tabID, root: root, active: active, coords: make(map[string]*session.Coordinator)}
	w.tabs[tabID] = t
	w.reconcileLocked(t, "")
	snap := snapshotLocked(t)
	w.mu.Unlock()

	log.Info(log.CatWorkspace, "tab opened", "tab", tabID, "pane", active)
	w.events.Publish(pubsub.CreatedEvent, Event{Type: EventTabOpened, TabID: tabID, Snapshot: snap})
	return snap
}

// CloseTab destroys a tab and every session under it.
func (w *Workspace) CloseTab(tabID string) {
	defer w.span("workspace.close_tab", tabID, "")()

	w.mu.Lock()
	t, ok := w.tabs[tabID]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.tabs, tabID)
	w.teardownLocked(t, "")
	w.mu.Unlock()

	log.Info(log.CatWorkspace, "tab closed", "tab", tabID)
	w.events.Publish(pubsub.DeletedEvent, Event{Type: EventTabClosed, TabID: tabID})
}

// Shutdown closes every tab and stops the cwd fold-back goroutine.
func (w *Workspace) Shutdown() {
	w.mu.Lock()
	for id, t := range w.tabs {
		delete(w.tabs, id)
		w.teardownLocked(t, "")
	}
	w.mu.Unlock()

	w.cancel()
	w.sessionEvents.Close()
	w.events.Close()
}

// Split replaces the pane with a split holding it and a fresh pane running
// shell/distro. The new pane becomes active and its session spawns.
func (w *Workspace) Split(tabID, paneID string, o layout.Orientation, shell, distro string) error {
	defer w.span("workspace.split", tabID, paneID)()

	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.tabs[tabID]
	if !ok {
		return fmt.Errorf("split: tab %s: %w", tabID, layout.ErrNodeNotFound)
	}

	newRoot, newActive, err := layout.SplitPane(t.root, paneID, o, shell, distro)
	if err != nil {
		log.ErrorErr(log.CatWorkspace, "split rejected", err, "tab", tabID, "pane", paneID)
		return err
	}

	t.root = newRoot
	t.active = newActive
	w.reconcileLocked(t, "")
	w.publishLayoutLocked(t)
	return nil
}

// ClosePane removes a pane and terminates its session. Closing the last pane
// closes the whole tab; the returned flag reports that.
func (w *Workspace) ClosePane(tabID, paneID string) (tabClosed bool, err error) {
	return w.removePane(tabID, paneID, false)
}

// DetachPane removes a pane whose session ownership is moving to another
// window: the layout change is the same as ClosePane but the external
// session is left running. The returned terminal descriptor carries what the
// receiving window needs for RestoreTab.
func (w *Workspace) DetachPane(tabID, paneID string) (*layout.Terminal, bool, error) {
	w.mu.Lock()
	t, ok := w.tabs[tabID]
	if !ok {
		w.mu.Unlock()
		return nil, false, fmt.Errorf("detach: tab %s: %w", tabID, layout.ErrNodeNotFound)
	}
	term, err := layout.FindTerminal(t.root, paneID)
	if err != nil {
		w.mu.Unlock()
		log.ErrorErr(log.CatWorkspace, "detach rejected", err, "tab", tabID, "pane", paneID)
		return nil, false, err
	}
	// Copy the declarative fields before the node leaves the tree.
	decl := *term
	if c, ok := t.coords[paneID]; ok && c.Cwd() != "" {
		decl.Cwd = c.Cwd()
	}
	w.mu.Unlock()

	tabClosed, err := w.removePane(tabID, paneID, true)
	if err != nil {
		return nil, false, err
	}
	return &decl, tabClosed, nil
}

func (w *Workspace) removePane(tabID, paneID string, detached bool) (bool, error) {
	defer w.span("workspace.close_pane", tabID, paneID)()

	w.mu.Lock()
	t, ok := w.tabs[tabID]
	if !ok {
		w.mu.Unlock()
		return false, fmt.Errorf("close: tab %s: %w", tabID, layout.ErrNodeNotFound)
	}

	res, err := layout.ClosePane(t.root, paneID, t.active)
	if err != nil {
		w.mu.Unlock()
		log.ErrorErr(log.CatWorkspace, "close rejected", err, "tab", tabID, "pane", paneID)
		return false, err
	}

	if res.CloseOwnerTab {
		// Last pane: the tab itself closes.
		delete(w.tabs, tabID)
		detachedPane := ""
		if detached {
			detachedPane = paneID
		}
		w.teardownLocked(t, detachedPane)
		w.mu.Unlock()

		log.Info(log.CatWorkspace, "last pane closed, tab closed", "tab", tabID, "pane", paneID)
		w.events.Publish(pubsub.DeletedEvent, Event{Type: EventTabClosed, TabID: tabID})
		return true, nil
	}

	t.root = res.Root
	t.active = res.ActivePaneID
	detachedPane := ""
	if detached {
		detachedPane = paneID
	}
	w.reconcileLocked(t, detachedPane)
	w.publishLayoutLocked(t)
	return false, nil
}

// SetActive moves focus to paneID after validating it still exists. Invalid
// ids are rejected without state change.
func (w *Workspace) SetActive(tabID, paneID string) error {
	w.mu.Lock()
	t, ok := w.tabs[tabID]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("set active: tab %s: %w", tabID, layout.ErrNodeNotFound)
	}
	if err := layout.SetActive(t.root, paneID); err != nil {
		w.mu.Unlock()
		log.ErrorErr(log.CatWorkspace, "focus rejected", err, "tab", tabID, "pane", paneID)
		return err
	}
	t.active = paneID
	snap := snapshotLocked(t)
	w.mu.Unlock()

	w.events.Publish(pubsub.UpdatedEvent, Event{Type: EventActiveChanged, TabID: tabID, Snapshot: snap})
	return nil
}

// UpdateCwd folds a working-directory change into the tree. A missing pane
// is a no-op: the report may race with the pane's removal.
func (w *Workspace) UpdateCwd(tabID, paneID, cwd string) error {
	w.mu.Lock()
	t, ok := w.tabs[tabID]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("update cwd: tab %s: %w", tabID, layout.ErrNodeNotFound)
	}
	newRoot, err := layout.UpdateCwd(t.root, paneID, cwd)
	if err != nil {
		w.mu.Unlock()
		log.Warn(log.CatWorkspace, "cwd update for unknown pane dropped", "tab", tabID, "pane", paneID)
		return err
	}
	if newRoot == t.root {
		w.mu.Unlock()
		return nil
	}
	t.root = newRoot
	w.publishLayoutLocked(t)
	w.mu.Unlock()
	return nil
}

// ActivePane returns the focused pane of a tab.
func (w *Workspace) ActivePane(tabID string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tabs[tabID]
	if !ok {
		return "", false
	}
	return t.active, true
}

// Snapshot returns a consistent view of one tab.
func (w *Workspace) Snapshot(tabID string) (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tabs[tabID]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotLocked(t), true
}

// Tabs returns the ids of all open tabs.
func (w *Workspace) Tabs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.tabs))
	for id := range w.tabs {
		ids = append(ids, id)
	}
	return ids
}

// PanePhase reports the lifecycle phase (and spawn error, if any) of a pane's
// session for display.
func (w *Workspace) PanePhase(tabID, paneID string) (session.Phase, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tabs[tabID]
	if !ok {
		return session.PhaseClosed, fmt.Errorf("pane phase: tab %s: %w", tabID, layout.ErrNodeNotFound)
	}
	c, ok := t.coords[paneID]
	if !ok {
		return session.PhaseClosed, fmt.Errorf("pane phase: pane %s: %w", paneID, layout.ErrNodeNotFound)
	}
	if err := c.Err(); err != nil {
		return c.Phase(), err
	}
	return c.Phase(), nil
}

// WritePane forwards keystrokes to a pane's session.
func (w *Workspace) WritePane(tabID, paneID string, p []byte) {
	if c := w.coordinator(tabID, paneID); c != nil {
		c.Write(p)
	}
}

// ResizePane forwards display dimensions to a pane's session, debounced
// downstream.
func (w *Workspace) ResizePane(tabID, paneID string, cols, rows int) {
	if c := w.coordinator(tabID, paneID); c != nil {
		c.Resize(cols, rows)
	}
}

func (w *Workspace) coordinator(tabID, paneID string) *session.Coordinator {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tabs[tabID]
	if !ok {
		return nil
	}
	return t.coords[paneID]
}

// reconcileLocked aligns the coordinator set with the tree's leaves:
// appeared leaves get a started coordinator, disappeared leaves are closed.
// detachedPane, when set, is closed without terminating its session.
func (w *Workspace) reconcileLocked(t *tab, detachedPane string) {
	leaves := layout.Terminals(t.root)
	live := make(map[string]bool, len(leaves))

	for _, leaf := range leaves {
		live[leaf.ID] = true
		if _, ok := t.coords[leaf.ID]; ok {
			continue
		}
		c := session.New(session.Config{
			TabID:          t.id,
			PaneID:         leaf.ID,
			Shell:          leaf.Shell,
			Distro:         leaf.Distro,
			Cwd:            leaf.Cwd,
			Reattach:       leaf.Reattach,
			Backend:        w.backend,
			Events:         w.sessionEvents,
			ResizeDebounce: w.debounce,
		})
		t.coords[leaf.ID] = c
		c.Start()
		log.Debug(log.CatWorkspace, "coordinator started", "tab", t.id, "pane", leaf.ID, "reattach", leaf.Reattach)
	}

	for id, c := range t.coords {
		if live[id] {
			continue
		}
		delete(t.coords, id)
		c.Close(id == detachedPane)
		log.Debug(log.CatWorkspace, "coordinator closed", "tab", t.id, "pane", id, "detached", id == detachedPane)
	}
}

// teardownLocked closes every coordinator of a tab. detachedPane, when set,
// keeps that pane's session alive through the hand-off.
func (w *Workspace) teardownLocked(t *tab, detachedPane string) {
	for id, c := range t.coords {
		delete(t.coords, id)
		c.Close(id == detachedPane)
	}
}

func (w *Workspace) publishLayoutLocked(t *tab) {
	w.events.Publish(pubsub.UpdatedEvent, Event{Type: EventLayoutChanged, TabID: t.id, Snapshot: snapshotLocked(t)})
}

func snapshotLocked(t *tab) Snapshot {
	return Snapshot{TabID: t.id, Root: t.root, ActivePaneID: t.active}
}

// watchCwd subscribes to session events and folds cwd reports back into the
// owning tree.
func (w *Workspace) watchCwd() {
	ch := w.sessionEvents.Subscribe(w.ctx)
	for ev := range ch {
		if ev.Payload.Type != session.EventCwd {
			continue
		}
		// Failure here means the pane vanished between report and apply;
		// UpdateCwd already logs it and the report is safely dropped.
		_ = w.UpdateCwd(ev.Payload.TabID, ev.Payload.PaneID, ev.Payload.Cwd)
	}
}

// span starts a tracing span when a tracer is configured; the returned func
// ends it.
func (w *Workspace) span(name, tabID, paneID string) func() {
	if w.tracer == nil {
		return func() {}
	}
	attrs := []attribute.KeyValue{attribute.String("tab.id", tabID)}
	if paneID != "" {
		attrs = append(attrs, attribute.String("pane.id", paneID))
	}
	_, span := w.tracer.Start(w.ctx, name, trace.WithAttributes(attrs...))
	return func() { span.End() }
}
