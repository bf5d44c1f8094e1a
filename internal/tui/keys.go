package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the counter screen keybindings.
type KeyMap struct {
	Increment key.Binding
	AddReads  key.Binding
	AddRounds key.Binding
	SetValue  key.Binding
	SetGoal   key.Binding
	Undo      key.Binding
	Favorite  key.Binding
	Next      key.Binding
	Prev      key.Binding
	Stats     key.Binding
	Quit      key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Submit    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Increment: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "+1")),
		AddReads:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reads")),
		AddRounds: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "rounds")),
		SetValue:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "value")),
		SetGoal:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "goal")),
		Undo:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Favorite:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		Next:      key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n", "next")),
		Prev:      key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p", "prev")),
		Stats:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stats")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Confirm:   key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		Cancel:    key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "cancel")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Increment, k.AddReads, k.AddRounds, k.SetValue, k.SetGoal, k.Undo, k.Favorite, k.Next, k.Prev, k.Stats, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Increment, k.AddReads, k.AddRounds, k.SetValue, k.SetGoal},
		{k.Undo, k.Favorite, k.Next, k.Prev, k.Stats, k.Quit},
	}
}
