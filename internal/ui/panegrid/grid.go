// Package panegrid turns a pane tree into screen geometry and rendered pane
// frames. The tree stores proportional sizes; this package resolves them to
// cell rectangles for a given window size and draws each pane's border,
// title, and placeholder content.
package panegrid

import (
	"github.com/loomterm/loom/internal/layout"
)

// Rect is a pane's screen rectangle in terminal cells.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// InnerWidth returns the content columns inside the pane border.
func (r Rect) InnerWidth() int {
	return max(r.Width-2, 0)
}

// InnerHeight returns the content rows inside the pane border.
func (r Rect) InnerHeight() int {
	return max(r.Height-2, 0)
}

// Compute resolves a pane tree to one rectangle per terminal pane within a
// width x height window. Horizontal splits lay children left to right,
// vertical splits top to bottom. Rounding remainders go to the last child so
// children always tile their parent exactly.
func Compute(root layout.Node, width, height int) map[string]Rect {
	rects := make(map[string]Rect)
	assign(root, Rect{X: 0, Y: 0, Width: width, Height: height}, rects)
	return rects
}

func assign(n layout.Node, area Rect, rects map[string]Rect) {
	switch node := n.(type) {
	case *layout.Terminal:
		rects[node.ID] = area
	case *layout.Split:
		spans := divide(splitExtent(node.Orientation, area), node.Sizes)
		offset := 0
		for i, child := range node.Children {
			childArea := area
			if node.Orientation == layout.Horizontal {
				childArea.X = area.X + offset
				childArea.Width = spans[i]
			} else {
				childArea.Y = area.Y + offset
				childArea.Height = spans[i]
			}
			assign(child, childArea, rects)
			offset += spans[i]
		}
	}
}

func splitExtent(o layout.Orientation, area Rect) int {
	if o == layout.Horizontal {
		return area.Width
	}
	return area.Height
}

// divide splits extent cells proportionally to sizes, giving the rounding
// remainder to the last entry.
func divide(extent int, sizes []int) []int {
	spans := make([]int, len(sizes))
	used := 0
	for i, size := range sizes {
		if i == len(sizes)-1 {
			spans[i] = extent - used
			break
		}
		spans[i] = extent * size / layout.SizeTotal
		used += spans[i]
	}
	return spans
}
