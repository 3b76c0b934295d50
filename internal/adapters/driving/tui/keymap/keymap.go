// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the progress view.
type KeyMap struct {
	// Stop asks the engine to pause at the next page boundary.
	// Pressing it again while stopping abandons the wait.
	Stop key.Binding

	// Quit closes the view once the run has stopped.
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Stop: key.NewBinding(
			key.WithKeys("ctrl+c", "s"),
			key.WithHelp("s", "stop"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown while a run is active.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop}
}

// DoneHelp returns the bindings shown after the run has stopped.
func (k *KeyMap) DoneHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
