// SPDX-License-Identifier: MPL-2.0

package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap is the browser key table. It satisfies help.KeyMap.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
	Cancel key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", "right", "l", "a"),
			key.WithHelp("enter/a", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "left", "h", "b", "backspace"),
			key.WithHelp("esc/b", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "b", "ctrl+c"),
			key.WithHelp("b", "cancel"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// acquiringHelp is shown while a download runs.
type acquiringHelp struct{ k keyMap }

func (a acquiringHelp) ShortHelp() []key.Binding { return []key.Binding{a.k.Cancel} }

func (a acquiringHelp) FullHelp() [][]key.Binding { return [][]key.Binding{a.ShortHelp()} }
