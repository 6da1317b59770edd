package chat

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	StartAutomation key.Binding
	StopAutomation  key.Binding
	SubmitMessage   key.Binding
	Reset           key.Binding
	ScrollUp        key.Binding
	ScrollDown      key.Binding
	Quit            key.Binding
}

var DefaultKeyMap = KeyMap{
	StartAutomation: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "start")),
	StopAutomation:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "stop")),
	SubmitMessage:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "ask")),
	Reset:           key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "new session")),
	ScrollUp:        key.NewBinding(key.WithKeys("shift+up", "pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDown:      key.NewBinding(key.WithKeys("shift+down", "pgdown"), key.WithHelp("pgdown", "scroll down")),
	Quit:            key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.StartAutomation, k.StopAutomation, k.SubmitMessage, k.Reset, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.ScrollUp, k.ScrollDown}}
}
