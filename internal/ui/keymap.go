package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the monitor
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	NextCurve key.Binding
	PrevCurve key.Binding

	Buy      key.Binding
	Sell     key.Binding
	Launch   key.Binding
	SizeUp   key.Binding
	SizeDown key.Binding
	Advance  key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		NextCurve: key.NewBinding(
			key.WithKeys("down", "j", "tab"),
			key.WithHelp("↓/j", "next curve"),
		),
		PrevCurve: key.NewBinding(
			key.WithKeys("up", "k", "shift+tab"),
			key.WithHelp("↑/k", "prev curve"),
		),
		Buy: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "buy"),
		),
		Sell: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sell"),
		),
		Launch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "launch curve"),
		),
		SizeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "double size"),
		),
		SizeDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "halve size"),
		),
		Advance: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "advance 50 slots"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Buy, k.Sell, k.SizeUp, k.SizeDown, k.Advance, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Buy, k.Sell, k.SizeUp, k.SizeDown},
		{k.NextCurve, k.PrevCurve, k.Launch},
		{k.Advance, k.Help, k.Quit},
	}
}
