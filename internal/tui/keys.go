package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Track   key.Binding
	Use     key.Binding
	Deposit key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Track, k.Use, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Track, k.Use, k.Deposit},
		{k.Help, k.Quit},
	}
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Track: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "start/stop tracking"),
		),
		Use: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "start/stop using time"),
		),
		Deposit: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "deposit today's time to holiday"),
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
