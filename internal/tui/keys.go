package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Tab        key.Binding
	ShiftTab   key.Binding
	Up         key.Binding
	Down       key.Binding
	Prev       key.Binding
	Next       key.Binding
	Today      key.Binding
	Refresh    key.Binding
	Group      key.Binding
	Generate   key.Binding
	Lock       key.Binding
	Delivery   key.Binding
	Delete     key.Binding
	AutoAssign key.Binding
	Working    key.Binding
	Off        key.Binding
	Holiday    key.Binding
	Float      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev view"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "["),
			key.WithHelp("←/[", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "]"),
			key.WithHelp("→/]", "next"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Group: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "group by"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate"),
		),
		Lock: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "lock/unlock"),
		),
		Delivery: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "on-demand delivery"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete trip"),
		),
		AutoAssign: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "auto-assign"),
		),
		Working: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "working"),
		),
		Off: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "off"),
		),
		Holiday: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "holiday"),
		),
		Float: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "float"),
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
}
