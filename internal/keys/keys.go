// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings. Everything uses alt or ctrl chords
// so plain keystrokes pass through to the focused shell untouched.
type KeyMap struct {
	// Pane management
	Split           key.Binding // orientation comes from ui.split_orientation
	SplitHorizontal key.Binding
	SplitVertical   key.Binding
	ClosePane       key.Binding
	DetachPane      key.Binding
	ReattachPane    key.Binding
	NextPane        key.Binding

	// Tab management
	NewTab   key.Binding
	CloseTab key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding

	// General
	ToggleStatus key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Split: key.NewBinding(
			key.WithKeys("alt+enter"),
			key.WithHelp("alt+↵", "split"),
		),
		SplitHorizontal: key.NewBinding(
			key.WithKeys("alt+h"),
			key.WithHelp("alt+h", "split right"),
		),
		SplitVertical: key.NewBinding(
			key.WithKeys("alt+v"),
			key.WithHelp("alt+v", "split down"),
		),
		ClosePane: key.NewBinding(
			key.WithKeys("alt+w"),
			key.WithHelp("alt+w", "close pane"),
		),
		DetachPane: key.NewBinding(
			key.WithKeys("alt+d"),
			key.WithHelp("alt+d", "detach pane"),
		),
		ReattachPane: key.NewBinding(
			key.WithKeys("alt+r"),
			key.WithHelp("alt+r", "reattach pane"),
		),
		NextPane: key.NewBinding(
			key.WithKeys("alt+n"),
			key.WithHelp("alt+n", "next pane"),
		),

		NewTab: key.NewBinding(
			key.WithKeys("alt+t"),
			key.WithHelp("alt+t", "new tab"),
		),
		CloseTab: key.NewBinding(
			key.WithKeys("alt+x"),
			key.WithHelp("alt+x", "close tab"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("alt+right"),
			key.WithHelp("alt+→", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("alt+left"),
			key.WithHelp("alt+←", "prev tab"),
		),

		ToggleStatus: key.NewBinding(
			key.WithKeys("alt+s"),
			key.WithHelp("alt+s", "toggle status bar"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Split, k.NextPane, k.NewTab, k.Quit}
}

// FullHelp returns all bindings grouped by concern.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Split, k.SplitHorizontal, k.SplitVertical, k.ClosePane, k.DetachPane, k.ReattachPane, k.NextPane},
		{k.NewTab, k.CloseTab, k.NextTab, k.PrevTab},
		{k.ToggleStatus, k.Quit},
	}
}
