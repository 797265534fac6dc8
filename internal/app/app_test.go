package app

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomterm/loom/internal/config"
	"github.com/loomterm/loom/internal/layout"
	"github.com/loomterm/loom/internal/session"
	"github.com/loomterm/loom/internal/workspace"
)

// fakeBackend satisfies session.Backend without spawning anything.
type fakeBackend struct {
	mu      sync.Mutex
	writes  map[string][]byte
	spawned []spawnCall
}

type spawnCall struct {
	id, shell, distro, cwd string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{writes: make(map[string][]byte)}
}

func (f *fakeBackend) Spawn(_ context.Context, id, shell, distro, cwd string) (session.Dimensions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spawned = append(f.spawned, spawnCall{id: id, shell: shell, distro: distro, cwd: cwd})
	return session.Dimensions{Cols: 80, Rows: 24}, nil
}

func (f *fakeBackend) spawnCalls() []spawnCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]spawnCall(nil), f.spawned...)
}

func (f *fakeBackend) Reattach(_ context.Context, _ string) ([]byte, error) {
	return nil, session.ErrBufferUnavailable
}

func (f *fakeBackend) Write(sessionID string, p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[sessionID] = append(f.writes[sessionID], p...)
}

func (f *fakeBackend) written(sessionID string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.writes[sessionID]...)
}

func (f *fakeBackend) Resize(string, int, int) error { return nil }
func (f *fakeBackend) Terminate(string)              {}

func (f *fakeBackend) Subscribe(ctx context.Context, _ string) <-chan []byte {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func newTestModel(t *testing.T, opts ...Option) (Model, *fakeBackend) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Shell = "/bin/sh"
	return newTestModelWithConfig(t, cfg, opts...)
}

func newTestModelWithConfig(t *testing.T, cfg config.Config, opts ...Option) (Model, *fakeBackend) {
	t.Helper()
	be := newFakeBackend()
	ws := workspace.New(be, workspace.WithResizeDebounce(time.Millisecond))
	t.Cleanup(ws.Shutdown)

	m := New(ws, cfg, opts...)

	sized, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = sized.(Model)
	// Drain the tab-opened event New's OpenTab published.
	m = pumpWorkspace(t, m)
	return m, be
}

// pumpWorkspace applies the next pending workspace event to the model.
func pumpWorkspace(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.wsEvents.Listen()()
	require.NotNil(t, msg, "expected a workspace event")
	next, _ := m.Update(msg)
	return next.(Model)
}

func altKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true}
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// ============================================================================
// Startup and layout
// ============================================================================

func TestNew_OpensFirstTab(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Equal(t, "tab-1", m.activeTab)
	snap, ok := m.snapshots["tab-1"]
	require.True(t, ok)
	assert.Len(t, layout.CollectLeafIDs(snap.Root), 1)
	assert.NotEmpty(t, snap.ActivePaneID)
}

func TestView_RendersTabBarAndFrame(t *testing.T) {
	m, _ := newTestModel(t)

	out := xansi.Strip(m.View())

	assert.Contains(t, out, "tab-1")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "╯")
}

func TestSplitKey_AddsAndFocusesNewPane(t *testing.T) {
	m, _ := newTestModel(t)
	before := m.snapshots["tab-1"]

	m, _ = press(t, m, altKey('h'))
	m = pumpWorkspace(t, m)

	snap := m.snapshots["tab-1"]
	leaves := layout.CollectLeafIDs(snap.Root)
	require.Len(t, leaves, 2)
	assert.NotEqual(t, before.ActivePaneID, snap.ActivePaneID)
}

func TestPlainSplitKey_FollowsConfiguredOrientation(t *testing.T) {
	for _, orientation := range []layout.Orientation{layout.Horizontal, layout.Vertical} {
		t.Run(string(orientation), func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Shell = "/bin/sh"
			cfg.UI.SplitOrientation = string(orientation)
			m, _ := newTestModelWithConfig(t, cfg)

			m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
			m = pumpWorkspace(t, m)

			split, ok := m.snapshots["tab-1"].Root.(*layout.Split)
			require.True(t, ok, "expected the root to become a split")
			assert.Equal(t, orientation, split.Orientation)
		})
	}
}

func TestProfile_DrivesNewPanes(t *testing.T) {
	cfg := config.Defaults()
	cfg.Shell = "/bin/sh"
	cfg.Profiles = []config.ProfileConfig{
		{Name: "work", Shell: "/bin/zsh", Distro: "arch", Cwd: "/srv/work"},
	}
	m, be := newTestModelWithConfig(t, cfg, WithProfile("work"))

	require.Eventually(t, func() bool {
		return len(be.spawnCalls()) == 1
	}, time.Second, 5*time.Millisecond)
	calls := be.spawnCalls()
	assert.Equal(t, "/bin/zsh", calls[0].shell)
	assert.Equal(t, "arch", calls[0].distro)
	assert.Equal(t, "/srv/work", calls[0].cwd)

	// Splits and fresh tabs launch from the same profile.
	m, _ = press(t, m, altKey('h'))
	m = pumpWorkspace(t, m)
	m, _ = press(t, m, altKey('t'))
	m = pumpWorkspace(t, m)

	require.Eventually(t, func() bool {
		return len(be.spawnCalls()) == 3
	}, time.Second, 5*time.Millisecond)
	calls = be.spawnCalls()
	for _, c := range calls[1:] {
		assert.Equal(t, "/bin/zsh", c.shell)
		assert.Equal(t, "arch", c.distro)
		assert.Equal(t, "/srv/work", c.cwd)
	}
}

func TestProfile_UnknownNameFallsBackToDefaults(t *testing.T) {
	cfg := config.Defaults()
	cfg.Shell = "/bin/sh"
	_, be := newTestModelWithConfig(t, cfg, WithProfile("nope"))

	require.Eventually(t, func() bool {
		return len(be.spawnCalls()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "/bin/sh", be.spawnCalls()[0].shell)
}

func TestNextPaneKey_CyclesFocus(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, altKey('v'))
	m = pumpWorkspace(t, m)
	focused := m.snapshots["tab-1"].ActivePaneID

	m, _ = press(t, m, altKey('n'))
	m = pumpWorkspace(t, m)

	assert.NotEqual(t, focused, m.snapshots["tab-1"].ActivePaneID)
}

// ============================================================================
// Tabs
// ============================================================================

func TestNewTabKey_OpensAndActivates(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = press(t, m, altKey('t'))
	m = pumpWorkspace(t, m)

	assert.Equal(t, []string{"tab-1", "tab-2"}, m.tabs)
	assert.Equal(t, "tab-2", m.activeTab)
}

func TestTabCycleKeys(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, altKey('t'))
	m = pumpWorkspace(t, m)
	require.Equal(t, "tab-2", m.activeTab)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft, Alt: true})
	assert.Equal(t, "tab-1", m.activeTab)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight, Alt: true})
	assert.Equal(t, "tab-2", m.activeTab)
}

func TestCloseLastTab_Quits(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = press(t, m, altKey('x'))
	next, cmd := m.Update(m.wsEvents.Listen()())
	m = next.(Model)

	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

// ============================================================================
// Detach and reattach
// ============================================================================

func TestDetachThenReattach_SameSessionID(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, altKey('h'))
	m = pumpWorkspace(t, m)
	detachedID := m.snapshots["tab-1"].ActivePaneID

	m, _ = press(t, m, altKey('d'))
	m = pumpWorkspace(t, m)
	require.Len(t, m.detached, 1)
	assert.Equal(t, detachedID, m.detached[0].ID)

	m, _ = press(t, m, altKey('r'))
	m = pumpWorkspace(t, m)

	assert.Empty(t, m.detached)
	snap := m.snapshots[m.activeTab]
	assert.Equal(t, detachedID, snap.ActivePaneID)
}

// ============================================================================
// Saved workspaces
// ============================================================================

func TestWithInitialTabs_RestoresSavedTrees(t *testing.T) {
	roots := []layout.Node{
		&layout.Terminal{ID: layout.NewID(), Shell: "/bin/sh", Cwd: "/srv"},
		&layout.Split{
			ID:          layout.NewID(),
			Orientation: layout.Vertical,
			Sizes:       []int{50, 50},
			Children: []layout.Node{
				&layout.Terminal{ID: layout.NewID(), Shell: "/bin/sh"},
				&layout.Terminal{ID: layout.NewID(), Shell: "/bin/sh"},
			},
		},
	}

	m, _ := newTestModel(t, WithInitialTabs(roots))
	m = pumpWorkspace(t, m) // second tab-opened event

	require.Equal(t, []string{"tab-1", "tab-2"}, m.tabs)
	assert.Len(t, layout.CollectLeafIDs(m.snapshots["tab-1"].Root), 1)
	assert.Len(t, layout.CollectLeafIDs(m.snapshots["tab-2"].Root), 2)
}

func TestWithSaveFunc_CalledOnQuit(t *testing.T) {
	var saved []layout.Node
	m, _ := newTestModel(t, WithSaveFunc(func(roots []layout.Node) { saved = roots }))
	m, _ = press(t, m, altKey('t'))
	m = pumpWorkspace(t, m)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})

	require.True(t, m.quitting)
	assert.Len(t, saved, 2)
}

// ============================================================================
// Input forwarding
// ============================================================================

func waitForRunning(t *testing.T, m Model, tabID, paneID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		phase, err := m.ws.PanePhase(tabID, paneID)
		return err == nil && phase == session.PhaseRunning
	}, time.Second, 5*time.Millisecond)
}

func TestPlainKeys_ForwardToActivePane(t *testing.T) {
	m, be := newTestModel(t)
	paneID := m.snapshots["tab-1"].ActivePaneID
	waitForRunning(t, m, "tab-1", paneID)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ls")})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "ls\r", string(be.written(paneID)))
	_ = m
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})

	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

// ============================================================================
// Session events
// ============================================================================

func TestSessionOutput_AppearsInView(t *testing.T) {
	m, _ := newTestModel(t)
	paneID := m.snapshots["tab-1"].ActivePaneID

	ev := session.Event{Type: session.EventPhase, TabID: "tab-1", PaneID: paneID, Phase: session.PhaseRunning}
	m.applySessionEvent(ev)
	m.applySessionEvent(session.Event{
		Type:   session.EventOutput,
		TabID:  "tab-1",
		PaneID: paneID,
		Output: []byte("hello from shell\r\n"),
	})

	assert.Contains(t, xansi.Strip(m.View()), "hello from shell")
}

func TestPaneView_TailClipsToHeight(t *testing.T) {
	pv := newPaneView()
	pv.append([]byte("one\ntwo\nthree\nfour\n"))

	out := pv.tail(20, 2)

	assert.Equal(t, "four\n", out)
	assert.NotContains(t, out, "one")
}
