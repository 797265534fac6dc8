package panegrid

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/loomterm/loom/internal/session"
)

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "243"})
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"})
)

// Placeholder renders the body of a pane whose session is not producing
// output yet, or never will. spinnerFrame is the current frame of the
// caller's spinner and is only used for the spawn phases. The result is
// centered within width x height.
func Placeholder(phase session.Phase, err error, spinnerFrame string, width, height int) string {
	var body string
	switch {
	case err != nil:
		msg := wordwrap.String(fmt.Sprintf("session failed: %v", err), max(width-4, 1))
		body = errorStyle.Render(msg)
	case phase == session.PhaseSpawning:
		body = dimStyle.Render(spinnerFrame + " starting shell")
	case phase == session.PhaseReattaching:
		body = dimStyle.Render(spinnerFrame + " reattaching")
	case phase == session.PhaseClosing:
		body = dimStyle.Render("closing")
	case phase == session.PhaseClosed:
		body = dimStyle.Render("exited")
	default:
		body = ""
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}
