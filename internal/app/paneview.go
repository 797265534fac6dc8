package app

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"github.com/loomterm/loom/internal/session"
)

// displayBufferCap bounds how much raw output a pane keeps around for
// rendering. The backend's scrollback is the real history; this is just the
// visible tail.
const displayBufferCap = 32 * 1024

// paneView holds the per-pane display state the UI derives from session
// events.
type paneView struct {
	buf   []byte
	phase session.Phase
	err   error
}

func newPaneView() *paneView {
	return &paneView{phase: session.PhaseIdle}
}

func (p *paneView) append(chunk []byte) {
	p.buf = append(p.buf, chunk...)
	if over := len(p.buf) - displayBufferCap; over > 0 {
		p.buf = p.buf[over:]
	}
}

// tail renders the last height lines of output, each clipped to width cells.
// Control sequences are stripped: the pane frame owns all styling.
func (p *paneView) tail(width, height int) string {
	if len(p.buf) == 0 || width <= 0 || height <= 0 {
		return ""
	}
	text := xansi.Strip(string(p.buf))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for i, line := range lines {
		lines[i] = xansi.Truncate(line, width, "")
	}
	return strings.Join(lines, "\n")
}
