package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit     key.Binding
	Back     key.Binding
	Help     key.Binding
	Enter    key.Binding
	Refresh  key.Binding
	Login    key.Binding
	Register key.Binding
	Logout   key.Binding
	Scan     key.Binding
	Alerts   key.Binding
	Watch    key.Binding
	Unwatch  key.Binding
	ReadAll  key.Binding
	Up       key.Binding
	Down     key.Binding
	Filter   key.Binding
}

var Keys = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Login:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign in")),
	Register: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "register")),
	Logout:   key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "sign out")),
	Scan:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan barcode")),
	Alerts:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "price alerts")),
	Watch:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watch price")),
	Unwatch:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "unwatch")),
	ReadAll:  key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "mark all read")),
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "down")),
	Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.Alerts, k.Login, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Back, k.Filter},
		{k.Scan, k.Watch, k.Unwatch, k.Refresh},
		{k.Alerts, k.ReadAll},
		{k.Login, k.Register, k.Logout, k.Help, k.Quit},
	}
}
