// Package layout implements the per-tab pane tree: a persistent tree whose
// leaves are terminal panes and whose internal nodes split space among ordered
// children. All mutations are copy-on-write transforms that share unmodified
// subtrees, so a renderer holding a previous root always sees a consistent
// snapshot.
package layout

import "github.com/google/uuid"

// Orientation is the axis along which a split divides its children.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// SizeTotal is the fixed sum of a split's child sizes.
const SizeTotal = 100

// Node is one node of a pane tree. Exactly two implementations exist:
// *Terminal (leaf) and *Split (internal node). Nodes are addressed purely by
// id, never by structural position.
type Node interface {
	// NodeID returns the node's stable, tree-unique identifier.
	NodeID() string

	isNode()
}

// Terminal is a leaf pane backed by one external shell session. The struct
// carries only the declarative fields; runtime state (lifecycle phase,
// dimensions) lives with the session coordinator, never in the tree.
type Terminal struct {
	ID     string
	Shell  string
	Distro string
	Cwd    string

	// Reattach marks a pane that must bind to an already-running external
	// session instead of spawning a new process.
	Reattach bool
}

// NodeID implements Node.
func (t *Terminal) NodeID() string { return t.ID }

func (t *Terminal) isNode() {}

// Split divides space among two or more children along one orientation.
// len(Children) == len(Sizes) >= 2 always holds, and Sizes sums to SizeTotal.
type Split struct {
	ID          string
	Orientation Orientation
	Children    []Node
	Sizes       []int
}

// NodeID implements Node.
func (s *Split) NodeID() string { return s.ID }

func (s *Split) isNode() {}

// NewID returns a fresh globally unique node id.
func NewID() string {
	return uuid.NewString()
}
