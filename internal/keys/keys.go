// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// CanvasKeyMap holds the overrides pushed in front of the host's hotkey
// chain while a canvas view is active.
type CanvasKeyMap struct {
	ToggleMode  key.Binding
	ForceReload key.Binding
	FlushLinks  key.Binding

	// Save is installed only when the host's save shortcut is mod+s.
	Save key.Binding
}

// Overrides returns the bindings pushed unconditionally, in registration order.
func (k CanvasKeyMap) Overrides() []key.Binding {
	return []key.Binding{k.ToggleMode, k.ForceReload, k.FlushLinks}
}

// Canvas is the default canvas override keymap.
var Canvas = CanvasKeyMap{
	ToggleMode: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "toggle text/canvas"),
	),
	ForceReload: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "reload from disk"),
	),
	FlushLinks: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "save and update links"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save canvas"),
	),
}

// AppKeyMap defines the keybindings of the terminal host.
type AppKeyMap struct {
	NextPane    key.Binding
	PrevPane    key.Binding
	Edit        key.Binding
	Save        key.Binding
	ToggleMode  key.Binding
	OpenAsText  key.Binding
	ToggleTheme key.Binding
	Overlay     key.Binding
	Drawer      key.Binding
	NewWindow   key.Binding
	CloseWindow key.Binding
	ClosePane   key.Binding
	Restyle     key.Binding
	Annotate    key.Binding
	Logs        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// ShortHelp returns keybindings for the short help view.
func (k AppKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPane, k.Edit, k.ToggleMode, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k AppKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPane, k.PrevPane, k.ClosePane},                       // Panes
		{k.Edit, k.Save, k.ToggleMode, k.OpenAsText},                // Documents
		{k.ToggleTheme, k.Restyle, k.Overlay, k.Drawer, k.Annotate}, // Presentation
		{k.NewWindow, k.CloseWindow, k.Logs, k.Help, k.Quit},        // General
	}
}

// App is the default terminal host keymap.
var App = AppKeyMap{
	NextPane: key.NewBinding(
		key.WithKeys("tab", "l", "right"),
		key.WithHelp("tab/l", "next pane"),
	),
	PrevPane: key.NewBinding(
		key.WithKeys("shift+tab", "h", "left"),
		key.WithHelp("shift+tab/h", "previous pane"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit document"),
	),
	Save: key.NewBinding(
		key.WithKeys("s", "ctrl+s"),
		key.WithHelp("s", "save"),
	),
	ToggleMode: key.NewBinding(
		key.WithKeys("m", "ctrl+e"),
		key.WithHelp("m", "toggle text/canvas"),
	),
	OpenAsText: key.NewBinding(
		key.WithKeys("M"),
		key.WithHelp("M", "open next as text"),
	),
	ToggleTheme: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "toggle theme"),
	),
	Overlay: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open a modal"),
	),
	Drawer: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "toggle side drawer"),
	),
	NewWindow: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new window"),
	),
	CloseWindow: key.NewBinding(
		key.WithKeys("W"),
		key.WithHelp("W", "close window"),
	),
	ClosePane: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "close pane"),
	),
	Restyle: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "re-harvest styles"),
	),
	Annotate: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "toggle file markers"),
	),
	Logs: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "logs"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
