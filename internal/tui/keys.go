package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Toggle   key.Binding
	Redo     key.Binding
	Clear    key.Binding
	Position key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan north")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan south")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan west")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan east")),
		ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "search as I move")),
		Redo:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "redo search here")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear refinement")),
		Position: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "search around centre")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Redo, k.Clear, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Position},
		{k.Toggle, k.Redo, k.Clear},
		{k.Help, k.Quit},
	}
}
