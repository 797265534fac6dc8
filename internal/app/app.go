// Package app contains the root application model.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomterm/loom/internal/config"
	"github.com/loomterm/loom/internal/keys"
	"github.com/loomterm/loom/internal/layout"
	"github.com/loomterm/loom/internal/log"
	"github.com/loomterm/loom/internal/pubsub"
	"github.com/loomterm/loom/internal/session"
	"github.com/loomterm/loom/internal/workspace"
)

// Model is the root application state. It renders workspace snapshots and
// translates key chords into workspace operations; everything else is typed
// straight through to the focused pane's shell.
type Model struct {
	ws   *workspace.Workspace
	cfg  config.Config
	keys keys.KeyMap
	spin spinner.Model

	ctx    context.Context
	cancel context.CancelFunc

	wsEvents   *pubsub.ContinuousListener[workspace.Event]
	sessEvents *pubsub.ContinuousListener[session.Event]

	tabs      []string
	activeTab string
	snapshots map[string]workspace.Snapshot
	panes     map[string]*paneView
	detached  []*layout.Terminal

	width      int
	height     int
	showStatus bool
	tabSeq     int
	quitting   bool

	restoreRoots []layout.Node
	saveFn       func(roots []layout.Node)

	// launch is the resolved profile every fresh pane starts from: the named
	// profile when one was selected, otherwise the top-level shell/distro.
	launch      config.ProfileConfig
	profileName string
}

// Option configures the model.
type Option func(*Model)

// WithInitialTabs opens one tab per saved pane tree instead of a single
// fresh tab.
func WithInitialTabs(roots []layout.Node) Option {
	return func(m *Model) { m.restoreRoots = roots }
}

// WithSaveFunc registers a callback invoked with the open pane trees, in tab
// order, just before the workspace shuts down.
func WithSaveFunc(fn func(roots []layout.Node)) Option {
	return func(m *Model) { m.saveFn = fn }
}

// WithProfile launches every fresh pane from the named config profile.
func WithProfile(name string) Option {
	return func(m *Model) { m.profileName = name }
}

// New creates the application model and opens the initial tabs.
func New(ws *workspace.Workspace, cfg config.Config, opts ...Option) Model {
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		ws:         ws,
		cfg:        cfg,
		keys:       keys.DefaultKeyMap(),
		spin:       sp,
		ctx:        ctx,
		cancel:     cancel,
		wsEvents:   pubsub.NewContinuousListener(ctx, ws.Events()),
		sessEvents: pubsub.NewContinuousListener(ctx, ws.SessionEvents()),
		snapshots:  make(map[string]workspace.Snapshot),
		panes:      make(map[string]*paneView),
		tabSeq:     0,
		showStatus: cfg.UI.ShowStatusBar,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.launch = cfg.Profile(m.profileName)

	for _, root := range m.restoreRoots {
		m.tabSeq++
		tabID := fmt.Sprintf("tab-%d", m.tabSeq)
		snap, err := ws.OpenTabTree(tabID, root)
		if err != nil {
			log.ErrorErr(log.CatUI, "restore tab", err, "tab", tabID)
			continue
		}
		m.tabs = append(m.tabs, snap.TabID)
		m.activeTab = snap.TabID
		m.snapshots[snap.TabID] = snap
	}
	if len(m.tabs) == 0 {
		m.tabSeq++
		snap := ws.OpenTab(fmt.Sprintf("tab-%d", m.tabSeq), m.launch.Shell, m.launch.Distro, m.launch.Cwd)
		m.tabs = []string{snap.TabID}
		m.activeTab = snap.TabID
		m.snapshots[snap.TabID] = snap
	}
	return m
}

// Init starts the spinner and the event listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.wsEvents.Listen(), m.sessEvents.Listen())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeTab(m.activeTab)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case pubsub.Event[workspace.Event]:
		m.applyWorkspaceEvent(msg.Payload)
		if m.quitting {
			return m, tea.Quit
		}
		return m, m.wsEvents.Listen()

	case pubsub.Event[session.Event]:
		m.applySessionEvent(msg.Payload)
		return m, m.sessEvents.Listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) applyWorkspaceEvent(ev workspace.Event) {
	switch ev.Type {
	case workspace.EventTabOpened:
		if !m.hasTab(ev.TabID) {
			m.tabs = append(m.tabs, ev.TabID)
		}
		m.snapshots[ev.TabID] = ev.Snapshot
		m.activeTab = ev.TabID
		m.resizeTab(ev.TabID)

	case workspace.EventTabClosed:
		delete(m.snapshots, ev.TabID)
		m.tabs = removeTab(m.tabs, ev.TabID)
		if m.activeTab == ev.TabID {
			if len(m.tabs) == 0 {
				log.Info(log.CatUI, "last tab closed, shutting down")
				m.shutdown()
				return
			}
			m.activeTab = m.tabs[len(m.tabs)-1]
			m.resizeTab(m.activeTab)
		}

	case workspace.EventLayoutChanged, workspace.EventActiveChanged:
		m.snapshots[ev.TabID] = ev.Snapshot
		if ev.TabID == m.activeTab {
			m.resizeTab(ev.TabID)
		}
	}
	m.prunePaneViews()
}

func (m *Model) applySessionEvent(ev session.Event) {
	pv := m.panes[ev.PaneID]
	if pv == nil {
		pv = newPaneView()
		m.panes[ev.PaneID] = pv
	}
	switch ev.Type {
	case session.EventOutput:
		pv.append(ev.Output)
	case session.EventPhase:
		pv.phase = ev.Phase
		pv.err = ev.Err
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.shutdown()
		return m, tea.Quit

	case key.Matches(msg, k.Split):
		m.splitActive(m.configuredOrientation())
	case key.Matches(msg, k.SplitHorizontal):
		m.splitActive(layout.Horizontal)
	case key.Matches(msg, k.SplitVertical):
		m.splitActive(layout.Vertical)

	case key.Matches(msg, k.ClosePane):
		if tabID, paneID, ok := m.activePane(); ok {
			if _, err := m.ws.ClosePane(tabID, paneID); err != nil {
				log.ErrorErr(log.CatUI, "close pane", err)
			}
		}
	case key.Matches(msg, k.DetachPane):
		if tabID, paneID, ok := m.activePane(); ok {
			term, _, err := m.ws.DetachPane(tabID, paneID)
			if err != nil {
				log.ErrorErr(log.CatUI, "detach pane", err)
				break
			}
			m.detached = append(m.detached, term)
		}
	case key.Matches(msg, k.ReattachPane):
		m.reattachLast()
	case key.Matches(msg, k.NextPane):
		m.focusNextPane()

	case key.Matches(msg, k.NewTab):
		m.openTab()
	case key.Matches(msg, k.CloseTab):
		if m.activeTab != "" {
			m.ws.CloseTab(m.activeTab)
		}
	case key.Matches(msg, k.NextTab):
		m.cycleTab(1)
	case key.Matches(msg, k.PrevTab):
		m.cycleTab(-1)

	case key.Matches(msg, k.ToggleStatus):
		m.showStatus = !m.showStatus
		m.resizeTab(m.activeTab)

	default:
		if tabID, paneID, ok := m.activePane(); ok {
			if p := keyToBytes(msg); len(p) > 0 {
				m.ws.WritePane(tabID, paneID, p)
			}
		}
	}
	if m.quitting {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) splitActive(o layout.Orientation) {
	tabID, paneID, ok := m.activePane()
	if !ok {
		return
	}
	if err := m.ws.Split(tabID, paneID, o, m.launch.Shell, m.launch.Distro); err != nil {
		log.ErrorErr(log.CatUI, "split pane", err)
	}
}

// configuredOrientation is the axis for the plain split key, taken from
// ui.split_orientation. Validation has already constrained the value.
func (m Model) configuredOrientation() layout.Orientation {
	if m.cfg.UI.SplitOrientation == string(layout.Vertical) {
		return layout.Vertical
	}
	return layout.Horizontal
}

func (m *Model) focusNextPane() {
	snap, ok := m.snapshots[m.activeTab]
	if !ok {
		return
	}
	leaves := layout.CollectLeafIDs(snap.Root)
	if len(leaves) < 2 {
		return
	}
	for i, id := range leaves {
		if id == snap.ActivePaneID {
			next := leaves[(i+1)%len(leaves)]
			if err := m.ws.SetActive(m.activeTab, next); err != nil {
				log.ErrorErr(log.CatUI, "focus pane", err)
			}
			return
		}
	}
}

func (m *Model) openTab() {
	m.tabSeq++
	cwd := m.launch.Cwd
	if cwd == "" {
		if snap, ok := m.snapshots[m.activeTab]; ok {
			if term, err := layout.FindTerminal(snap.Root, snap.ActivePaneID); err == nil {
				cwd = term.Cwd
			}
		}
	}
	m.ws.OpenTab(fmt.Sprintf("tab-%d", m.tabSeq), m.launch.Shell, m.launch.Distro, cwd)
}

// reattachLast pops the most recently detached pane into a fresh tab,
// resuming its session where it left off.
func (m *Model) reattachLast() {
	if len(m.detached) == 0 {
		return
	}
	term := m.detached[len(m.detached)-1]
	m.detached = m.detached[:len(m.detached)-1]
	m.tabSeq++
	m.ws.RestoreTab(fmt.Sprintf("tab-%d", m.tabSeq), term.ID, term.Shell, term.Distro, term.Cwd)
}

func (m *Model) cycleTab(step int) {
	if len(m.tabs) < 2 {
		return
	}
	for i, id := range m.tabs {
		if id == m.activeTab {
			m.activeTab = m.tabs[(i+step+len(m.tabs))%len(m.tabs)]
			m.resizeTab(m.activeTab)
			return
		}
	}
}

func (m *Model) shutdown() {
	if m.quitting {
		return
	}
	m.quitting = true
	if m.saveFn != nil {
		roots := make([]layout.Node, 0, len(m.tabs))
		for _, tabID := range m.tabs {
			if snap, ok := m.snapshots[tabID]; ok {
				roots = append(roots, snap.Root)
			}
		}
		m.saveFn(roots)
	}
	m.cancel()
	m.ws.Shutdown()
}

func (m *Model) activePane() (tabID, paneID string, ok bool) {
	snap, found := m.snapshots[m.activeTab]
	if !found || snap.ActivePaneID == "" {
		return "", "", false
	}
	return m.activeTab, snap.ActivePaneID, true
}

func (m *Model) hasTab(tabID string) bool {
	for _, id := range m.tabs {
		if id == tabID {
			return true
		}
	}
	return false
}

// prunePaneViews drops display buffers for panes no longer in any tab.
func (m *Model) prunePaneViews() {
	live := make(map[string]struct{})
	for _, snap := range m.snapshots {
		for _, id := range layout.CollectLeafIDs(snap.Root) {
			live[id] = struct{}{}
		}
	}
	for id := range m.panes {
		if _, ok := live[id]; ok {
			continue
		}
		if m.isDetached(id) {
			continue
		}
		delete(m.panes, id)
	}
}

func (m *Model) isDetached(paneID string) bool {
	for _, term := range m.detached {
		if term.ID == paneID {
			return true
		}
	}
	return false
}

// resizeTab pushes the current per-pane inner dimensions down to the
// sessions of one tab.
func (m *Model) resizeTab(tabID string) {
	snap, ok := m.snapshots[tabID]
	if !ok || m.width == 0 || m.height == 0 {
		return
	}
	for id, rect := range m.paneRects(snap) {
		m.ws.ResizePane(tabID, id, rect.InnerWidth(), rect.InnerHeight())
	}
}

func removeTab(tabs []string, tabID string) []string {
	out := tabs[:0]
	for _, id := range tabs {
		if id != tabID {
			out = append(out, id)
		}
	}
	return out
}
