package panegrid

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// Rounded border pieces shared by every pane frame.
const (
	cornerTopLeft     = "╭"
	cornerTopRight    = "╮"
	cornerBottomLeft  = "╰"
	cornerBottomRight = "╯"
	edgeHorizontal    = "─"
	edgeVertical      = "│"
)

var (
	defaultBorderColor = lipgloss.AdaptiveColor{Light: "245", Dark: "240"}
	focusedBorderColor = lipgloss.AdaptiveColor{Light: "63", Dark: "105"}
	titleColor         = lipgloss.AdaptiveColor{Light: "240", Dark: "250"}
)

// FrameConfig describes one pane frame. Title is embedded in the top border,
// Status in the bottom border. Width and Height are outer dimensions
// including the border itself.
type FrameConfig struct {
	Width   int
	Height  int
	Title   string
	Status  string
	Focused bool
}

// Frame wraps content in a rounded border sized to cfg. Content lines are
// clipped and padded to the inner area so the result is always exactly
// cfg.Width x cfg.Height cells.
func Frame(content string, cfg FrameConfig) string {
	if cfg.Width < 2 || cfg.Height < 2 {
		return ""
	}

	borderStyle := lipgloss.NewStyle().Foreground(defaultBorderColor)
	if cfg.Focused {
		borderStyle = lipgloss.NewStyle().Foreground(focusedBorderColor)
	}
	titleStyle := lipgloss.NewStyle().Foreground(titleColor)
	if cfg.Focused {
		titleStyle = titleStyle.Bold(true)
	}

	innerWidth := cfg.Width - 2
	innerHeight := cfg.Height - 2

	var b strings.Builder
	b.WriteString(edgeWithLabel(cfg.Title, innerWidth, true, borderStyle, titleStyle))
	b.WriteString("\n")

	edge := borderStyle.Render(edgeVertical)
	for _, line := range innerLines(content, innerWidth, innerHeight) {
		b.WriteString(edge)
		b.WriteString(line)
		b.WriteString(edge)
		b.WriteString("\n")
	}

	b.WriteString(edgeWithLabel(cfg.Status, innerWidth, false, borderStyle, titleStyle))
	return b.String()
}

// edgeWithLabel builds a horizontal border row of innerWidth cells plus
// corners, with label embedded after the leading corner. Top rows put the
// label on the left, bottom rows on the right.
func edgeWithLabel(label string, innerWidth int, top bool, borderStyle, labelStyle lipgloss.Style) string {
	left, right := cornerBottomLeft, cornerBottomRight
	if top {
		left, right = cornerTopLeft, cornerTopRight
	}

	if label != "" && innerWidth >= 4 {
		label = " " + xansi.Truncate(label, innerWidth-2, "…") + " "
	} else {
		label = ""
	}
	fill := innerWidth - lipgloss.Width(label)
	line := strings.Repeat(edgeHorizontal, fill)

	var b strings.Builder
	b.WriteString(borderStyle.Render(left))
	if top {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(borderStyle.Render(line))
	} else {
		b.WriteString(borderStyle.Render(line))
		b.WriteString(labelStyle.Render(label))
	}
	b.WriteString(borderStyle.Render(right))
	return b.String()
}

// innerLines clips and pads content into exactly height lines of width cells.
func innerLines(content string, width, height int) []string {
	lines := strings.Split(content, "\n")
	out := make([]string, height)
	for i := 0; i < height; i++ {
		line := ""
		if i < len(lines) {
			line = xansi.Truncate(lines[i], width, "")
		}
		if pad := width - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		out[i] = line
	}
	return out
}
