package workspace

import "github.com/loomterm/loom/internal/layout"

// EventType classifies workspace events.
type EventType string

const (
	// EventTabOpened fires when a tab is registered.
	EventTabOpened EventType = "tab_opened"
	// EventTabClosed fires when a tab is torn down, whether by CloseTab or
	// by closing the last pane.
	EventTabClosed EventType = "tab_closed"
	// EventLayoutChanged fires after any structural mutation (split, close,
	// cwd fold-back).
	EventLayoutChanged EventType = "layout_changed"
	// EventActiveChanged fires when the focused pane changes.
	EventActiveChanged EventType = "active_changed"
)

// Event is published on the workspace broker after every observable change.
// Snapshot is only set for events that leave the tab alive.
type Event struct {
	Type     EventType
	TabID    string
	Snapshot Snapshot
}

// Snapshot is a consistent read-only view of one tab. Root is an immutable
// tree value: a renderer can walk it while further mutations build new trees.
type Snapshot struct {
	TabID        string
	Root         layout.Node
	ActivePaneID string
}
