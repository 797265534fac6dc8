package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestKeyToBytes(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []byte
	}{
		{name: "runes", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ab")}, want: []byte("ab")},
		{name: "enter", msg: tea.KeyMsg{Type: tea.KeyEnter}, want: []byte{'\r'}},
		{name: "tab", msg: tea.KeyMsg{Type: tea.KeyTab}, want: []byte{'\t'}},
		{name: "escape", msg: tea.KeyMsg{Type: tea.KeyEscape}, want: []byte{0x1b}},
		{name: "ctrl+c", msg: tea.KeyMsg{Type: tea.KeyCtrlC}, want: []byte{0x03}},
		{name: "ctrl+d", msg: tea.KeyMsg{Type: tea.KeyCtrlD}, want: []byte{0x04}},
		{name: "backspace", msg: tea.KeyMsg{Type: tea.KeyBackspace}, want: []byte{0x7f}},
		{name: "arrow up", msg: tea.KeyMsg{Type: tea.KeyUp}, want: []byte("\x1b[A")},
		{name: "arrow left", msg: tea.KeyMsg{Type: tea.KeyLeft}, want: []byte("\x1b[D")},
		{name: "page down", msg: tea.KeyMsg{Type: tea.KeyPgDown}, want: []byte("\x1b[6~")},
		{name: "alt chord reserved", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}, Alt: true}, want: nil},
		{name: "alt arrow reserved", msg: tea.KeyMsg{Type: tea.KeyLeft, Alt: true}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keyToBytes(tt.msg))
		})
	}
}
