package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	open    key.Binding
	create  key.Binding
	remove  key.Binding
	filter  key.Binding
	prev    key.Binding
	next    key.Binding
	refresh key.Binding
	edit    key.Binding
	save    key.Binding
	tab     key.Binding
	pick    key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		create: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		filter: key.NewBinding(
			key.WithKeys("f", "/"),
			key.WithHelp("f", "filter"),
		),
		prev: key.NewBinding(
			key.WithKeys("left", "h", "pgup"),
			key.WithHelp("←/h", "prev page"),
		),
		next: key.NewBinding(
			key.WithKeys("right", "l", "pgdown"),
			key.WithHelp("→/l", "next page"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		save: key.NewBinding(
			key.WithKeys("ctrl+s", "enter"),
			key.WithHelp("ctrl+s", "save"),
		),
		tab: key.NewBinding(
			key.WithKeys("tab", "shift+tab", "down", "up"),
			key.WithHelp("tab", "next field"),
		),
		pick: key.NewBinding(
			key.WithKeys("ctrl+n", "ctrl+p"),
			key.WithHelp("ctrl+n/p", "pick director"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		no: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "no"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.open, k.create, k.remove, k.filter},
		{k.prev, k.next, k.refresh},
		{k.edit, k.save, k.back, k.quit},
	}
}
