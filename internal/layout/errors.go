package layout

import "errors"

var (
	// ErrNodeNotFound means an operation referenced a pane id absent from the
	// tree. This is always a caller bug, never expected in normal operation;
	// callers log it loudly and drop the operation rather than corrupt state.
	ErrNodeNotFound = errors.New("pane node not found")

	// ErrNotATerminal means the id resolved to a split node where a terminal
	// was required. Structurally impossible under the calling contract, but
	// checked defensively.
	ErrNotATerminal = errors.New("pane node is not a terminal")
)
