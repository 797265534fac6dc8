package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/loomterm/loom/internal/layout"
	"github.com/loomterm/loom/internal/session"
	"github.com/loomterm/loom/internal/ui/panegrid"
	"github.com/loomterm/loom/internal/workspace"
)

var (
	tabBarStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "243"})
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "63", Dark: "105"})
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "243"})
)

// View renders the active tab's pane grid with a tab bar above and an
// optional status bar below.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	snap, ok := m.snapshots[m.activeTab]
	if !ok {
		return "no open tabs"
	}

	sections := []string{m.tabBar(), m.renderGrid(snap)}
	if m.showStatus {
		sections = append(sections, m.statusBar(snap))
	}
	return strings.Join(sections, "\n")
}

func (m Model) tabBar() string {
	parts := make([]string, 0, len(m.tabs))
	for _, id := range m.tabs {
		label := " " + id + " "
		if id == m.activeTab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabBarStyle.Render(label))
		}
	}
	bar := strings.Join(parts, tabBarStyle.Render("│"))
	return xansi.Truncate(bar, m.width, "")
}

func (m Model) renderGrid(snap workspace.Snapshot) string {
	rects := m.paneRects(snap)
	return m.renderNode(snap, snap.Root, rects)
}

func (m Model) renderNode(snap workspace.Snapshot, n layout.Node, rects map[string]panegrid.Rect) string {
	switch node := n.(type) {
	case *layout.Terminal:
		return m.renderPane(node, rects[node.ID], node.ID == snap.ActivePaneID)
	case *layout.Split:
		parts := make([]string, len(node.Children))
		for i, child := range node.Children {
			parts[i] = m.renderNode(snap, child, rects)
		}
		if node.Orientation == layout.Horizontal {
			return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}
	return ""
}

func (m Model) renderPane(term *layout.Terminal, rect panegrid.Rect, focused bool) string {
	pv := m.panes[term.ID]
	phase := session.PhaseIdle
	var paneErr error
	if pv != nil {
		phase = pv.phase
		paneErr = pv.err
	}

	var content string
	if phase == session.PhaseRunning && pv != nil {
		content = pv.tail(rect.InnerWidth(), rect.InnerHeight())
	} else {
		content = panegrid.Placeholder(phase, paneErr, m.spin.View(), rect.InnerWidth(), rect.InnerHeight())
	}

	return panegrid.Frame(content, panegrid.FrameConfig{
		Width:   rect.Width,
		Height:  rect.Height,
		Title:   paneTitle(term),
		Status:  shortPath(term.Cwd),
		Focused: focused,
	})
}

func (m Model) statusBar(snap workspace.Snapshot) string {
	left := snap.TabID
	if term, err := layout.FindTerminal(snap.Root, snap.ActivePaneID); err == nil && term.Cwd != "" {
		left = term.Cwd
	}

	hints := make([]string, 0, 5)
	for _, b := range m.keys.ShortHelp() {
		hints = append(hints, b.Help().Key+" "+b.Help().Desc)
	}
	right := strings.Join(hints, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return xansi.Truncate(statusStyle.Render(left), m.width, "")
	}
	return statusStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// paneRects resolves the active tab's tree against the area left over after
// the tab bar and status bar.
func (m Model) paneRects(snap workspace.Snapshot) map[string]panegrid.Rect {
	contentHeight := m.height - 1
	if m.showStatus {
		contentHeight--
	}
	if contentHeight < 0 {
		contentHeight = 0
	}
	return panegrid.Compute(snap.Root, m.width, contentHeight)
}

func paneTitle(term *layout.Terminal) string {
	title := filepath.Base(term.Shell)
	if term.Shell == "" {
		title = "shell"
	}
	if term.Distro != "" {
		title += "@" + term.Distro
	}
	return title
}

func shortPath(path string) string {
	if path == "" {
		return ""
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" && strings.HasPrefix(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}
