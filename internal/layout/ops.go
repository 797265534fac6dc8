package layout

import "fmt"

// CloseResult is the outcome of ClosePane.
type CloseResult struct {
	// Root is the tree after removal. Unchanged when CloseOwnerTab is set.
	Root Node
	// ActivePaneID is the repaired active pane id. It always resolves to a
	// terminal node in Root.
	ActivePaneID string
	// CloseOwnerTab is set when the target was the sole root terminal. The
	// tree has nothing left to collapse into; the owning tab should close.
	CloseOwnerTab bool
}

// Initialize creates the single-terminal tree for a freshly opened tab.
// Returns the root and the id of the terminal, which starts active.
func Initialize(shell, distro, cwd string) (Node, string) {
	t := &Terminal{ID: NewID(), Shell: shell, Distro: distro, Cwd: cwd}
	return t, t.ID
}

// Restore is Initialize for a pane folded back from a detached window: the
// caller supplies the existing pane id and the terminal is marked Reattach so
// the session layer binds to the running process instead of spawning.
func Restore(existingID, shell, distro, cwd string) (Node, string) {
	t := &Terminal{ID: existingID, Shell: shell, Distro: distro, Cwd: cwd, Reattach: true}
	return t, t.ID
}

// SplitPane replaces the terminal with targetID by a split holding that
// terminal and a brand-new one running shell/distro, sized 50/50. Only the
// path from root to the target is rebuilt; every other subtree is shared with
// the input. Returns the new root and the new terminal's id, which becomes
// the active pane.
func SplitPane(root Node, targetID string, o Orientation, shell, distro string) (Node, string, error) {
	target, err := FindTerminal(root, targetID)
	if err != nil {
		return nil, "", fmt.Errorf("split %s: %w", targetID, err)
	}

	fresh := &Terminal{ID: NewID(), Shell: shell, Distro: distro}
	replacement := &Split{
		ID:          NewID(),
		Orientation: o,
		Children:    []Node{target, fresh},
		Sizes:       []int{SizeTotal / 2, SizeTotal / 2},
	}

	newRoot, _ := replace(root, targetID, replacement)
	return newRoot, fresh.ID, nil
}

// ClosePane removes the terminal with targetID. The parent split's surviving
// children get equal sizes; a parent left with a single child is itself
// replaced by that child. activeID is the currently active pane; when the
// closed pane was active the leftmost depth-first leaf of the result takes
// over.
func ClosePane(root Node, targetID, activeID string) (CloseResult, error) {
	if _, err := FindTerminal(root, targetID); err != nil {
		return CloseResult{}, fmt.Errorf("close %s: %w", targetID, err)
	}

	if root.NodeID() == targetID {
		// Sole root terminal: nothing to collapse into, the tab closes.
		return CloseResult{Root: root, ActivePaneID: activeID, CloseOwnerTab: true}, nil
	}

	newRoot, _ := removeLeaf(root, targetID)

	active := activeID
	if _, err := FindTerminal(newRoot, activeID); err != nil {
		active = leftmostLeaf(newRoot).ID
	}

	return CloseResult{Root: newRoot, ActivePaneID: active}, nil
}

// SetActive validates that paneID resolves to an existing terminal. Callers
// must not apply the focus change when this fails.
func SetActive(root Node, paneID string) error {
	if _, err := FindTerminal(root, paneID); err != nil {
		return fmt.Errorf("set active %s: %w", paneID, err)
	}
	return nil
}

// UpdateCwd returns a tree in which the terminal with paneID carries cwd.
// Only the path from root to that node is rebuilt.
func UpdateCwd(root Node, paneID, cwd string) (Node, error) {
	target, err := FindTerminal(root, paneID)
	if err != nil {
		return nil, fmt.Errorf("update cwd %s: %w", paneID, err)
	}
	if target.Cwd == cwd {
		return root, nil
	}

	updated := *target
	updated.Cwd = cwd
	newRoot, _ := replace(root, paneID, &updated)
	return newRoot, nil
}

// CollectLeafIDs returns every terminal id depth-first, left to right.
func CollectLeafIDs(root Node) []string {
	var ids []string
	walkTerminals(root, func(t *Terminal) {
		ids = append(ids, t.ID)
	})
	return ids
}

// Terminals returns every terminal node depth-first, left to right.
func Terminals(root Node) []*Terminal {
	var leaves []*Terminal
	walkTerminals(root, func(t *Terminal) {
		leaves = append(leaves, t)
	})
	return leaves
}

// FindTerminal resolves id to a terminal node anywhere in the tree.
// Returns ErrNodeNotFound if the id is absent, ErrNotATerminal if it names a
// split.
func FindTerminal(root Node, id string) (*Terminal, error) {
	n := findNode(root, id)
	if n == nil {
		return nil, ErrNodeNotFound
	}
	t, ok := n.(*Terminal)
	if !ok {
		return nil, ErrNotATerminal
	}
	return t, nil
}

// findNode locates id anywhere in the tree, short-circuiting once found.
func findNode(n Node, id string) Node {
	if n.NodeID() == id {
		return n
	}
	s, ok := n.(*Split)
	if !ok {
		return nil
	}
	for _, child := range s.Children {
		if found := findNode(child, id); found != nil {
			return found
		}
	}
	return nil
}

// replace substitutes the node with targetID by repl, rebuilding only the
// spine from root to the target. Untouched subtrees are shared by reference.
func replace(n Node, targetID string, repl Node) (Node, bool) {
	if n.NodeID() == targetID {
		return repl, true
	}
	s, ok := n.(*Split)
	if !ok {
		return n, false
	}
	for i, child := range s.Children {
		newChild, found := replace(child, targetID, repl)
		if !found {
			continue
		}
		children := make([]Node, len(s.Children))
		copy(children, s.Children)
		children[i] = newChild

		copied := *s
		copied.Children = children
		return &copied, true
	}
	return n, false
}

// removeLeaf removes the terminal child with targetID from its parent split,
// collapsing the parent when a single child survives. Returns the
// replacement for n and whether the target was found under it.
func removeLeaf(n Node, targetID string) (Node, bool) {
	s, ok := n.(*Split)
	if !ok {
		return n, false
	}

	for i, child := range s.Children {
		if child.NodeID() != targetID {
			continue
		}

		survivors := make([]Node, 0, len(s.Children)-1)
		survivors = append(survivors, s.Children[:i]...)
		survivors = append(survivors, s.Children[i+1:]...)

		if len(survivors) == 1 {
			// A single-child split is redundant; the survivor takes the
			// parent's place.
			return survivors[0], true
		}

		copied := *s
		copied.Children = survivors
		copied.Sizes = equalSizes(len(survivors))
		return &copied, true
	}

	for i, child := range s.Children {
		newChild, found := removeLeaf(child, targetID)
		if !found {
			continue
		}
		children := make([]Node, len(s.Children))
		copy(children, s.Children)
		children[i] = newChild

		copied := *s
		copied.Children = children
		return &copied, true
	}

	return n, false
}

// equalSizes redistributes SizeTotal equally, giving any integer remainder to
// the last child so the sum invariant holds.
func equalSizes(count int) []int {
	sizes := make([]int, count)
	each := SizeTotal / count
	for i := range sizes {
		sizes[i] = each
	}
	sizes[count-1] += SizeTotal - each*count
	return sizes
}

// leftmostLeaf returns the first depth-first terminal.
func leftmostLeaf(n Node) *Terminal {
	for {
		switch v := n.(type) {
		case *Terminal:
			return v
		case *Split:
			n = v.Children[0]
		}
	}
}

func walkTerminals(n Node, fn func(*Terminal)) {
	switch v := n.(type) {
	case *Terminal:
		fn(v)
	case *Split:
		for _, child := range v.Children {
			walkTerminals(child, fn)
		}
	}
}
