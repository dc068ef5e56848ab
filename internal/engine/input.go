package engine

import (
	tea "github.com/charmbracelet/bubbletea"

	"chitui/pkg/logging"
)

// Input is one event handed to Tick. Inputs are applied in order before
// any background outcome of the same tick.
type Input interface {
	isInput()
}

// KeyInput is a key press from the terminal.
type KeyInput struct {
	Msg tea.KeyMsg
}

// ResizeInput reports the terminal size.
type ResizeInput struct {
	Width, Height int
}

// EnterInput opens a root menu item by id, as if it had been selected.
type EnterInput struct {
	ID string
}

// ReloadInput reports that the config file at Path changed on disk.
type ReloadInput struct {
	Path string
}

// LogInput carries a log entry for the debug pane.
type LogInput struct {
	Entry logging.LogEntry
}

func (KeyInput) isInput()    {}
func (ResizeInput) isInput() {}
func (EnterInput) isInput()  {}
func (ReloadInput) isInput() {}
func (LogInput) isInput()    {}

// Key is a shorthand for a KeyInput of a plain key type.
func Key(t tea.KeyType) KeyInput {
	return KeyInput{Msg: tea.KeyMsg{Type: t}}
}

// Runes is a shorthand for typed characters.
func Runes(s string) KeyInput {
	return KeyInput{Msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}}
}
