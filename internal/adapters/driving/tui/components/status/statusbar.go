// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/certsync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/certsync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/certsync/internal/core/domain"
)

// Bar displays the run state and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    domain.RunState
	message  string
	stopping bool
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  domain.RunIdle,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	// Width includes the style's padding, so the content gets less.
	inner := s.width - s.styles.StatusBar.GetHorizontalPadding()
	padding := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	if s.stopping && !s.state.IsTerminal() {
		return s.styles.Warning.Render("Stopping after current page...")
	}
	label := s.styles.ForState(s.state).Render(s.state.String())
	if s.message != "" {
		return label + " " + s.styles.Help.Render(s.message)
	}
	return label
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state.IsTerminal() {
		bindings = s.keymap.DoneHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Help.Render(strings.Join(hints, " | "))
}

// SetState sets the run state shown on the left.
func (s *Bar) SetState(state domain.RunState) {
	s.state = state
}

// State returns the current run state.
func (s *Bar) State() domain.RunState {
	return s.state
}

// SetMessage sets a short message shown after the state.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetStopping marks that a stop has been requested.
func (s *Bar) SetStopping(stopping bool) {
	s.stopping = stopping
}

// Stopping reports whether a stop has been requested.
func (s *Bar) Stopping() bool {
	return s.stopping
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
