package app

import tea "github.com/charmbracelet/bubbletea"

// keyToBytes encodes a key press as the bytes a terminal would send to the
// shell. Alt chords are reserved for the UI and never forwarded. Returns nil
// for keys with no terminal encoding.
func keyToBytes(msg tea.KeyMsg) []byte {
	if msg.Alt {
		return nil
	}
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		return []byte(string(msg.Runes))
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyUp:
		return []byte("\x1b[A")
	case tea.KeyDown:
		return []byte("\x1b[B")
	case tea.KeyRight:
		return []byte("\x1b[C")
	case tea.KeyLeft:
		return []byte("\x1b[D")
	case tea.KeyHome:
		return []byte("\x1b[H")
	case tea.KeyEnd:
		return []byte("\x1b[F")
	case tea.KeyDelete:
		return []byte("\x1b[3~")
	case tea.KeyPgUp:
		return []byte("\x1b[5~")
	case tea.KeyPgDown:
		return []byte("\x1b[6~")
	}
	// C0 control keys (enter, tab, escape, ctrl+a..z) carry their byte value
	// as the key type.
	if msg.Type >= 0 && msg.Type < 32 {
		return []byte{byte(msg.Type)}
	}
	return nil
}
