package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chitui/internal/tui/design"
	"chitui/internal/tui/utils"
)

// MessageType selects the status bar color for a message.
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageError
)

func (t MessageType) String() string {
	switch t {
	case MessageSuccess:
		return "success"
	case MessageError:
		return "error"
	default:
		return "info"
	}
}

// StatusBar represents the bottom status bar
type StatusBar struct {
	Width       int
	Message     string
	MessageType MessageType
	LeftText    string
	RightText   string
	ShowMessage bool
}

// NewStatusBar creates a new status bar
func NewStatusBar(width int) *StatusBar {
	return &StatusBar{
		Width:       width,
		ShowMessage: false,
	}
}

// WithMessage sets a status message; it replaces the left text.
func (s *StatusBar) WithMessage(message string, msgType MessageType) *StatusBar {
	s.Message = message
	s.MessageType = msgType
	s.ShowMessage = true
	return s
}

// WithLeftText sets the left side text
func (s *StatusBar) WithLeftText(text string) *StatusBar {
	s.LeftText = text
	return s
}

// WithRightText sets the right side text
func (s *StatusBar) WithRightText(text string) *StatusBar {
	s.RightText = text
	return s
}

// ClearMessage removes the status message
func (s *StatusBar) ClearMessage() *StatusBar {
	s.ShowMessage = false
	s.Message = ""
	return s
}

// Render returns the styled status bar
func (s *StatusBar) Render() string {
	style := s.getStyle()

	left := s.LeftText
	if s.ShowMessage && s.Message != "" {
		left = s.Message
	}
	avail := s.Width - design.SpaceSM*2

	var content string
	switch {
	case left != "" && s.RightText != "":
		leftWidth := lipgloss.Width(left)
		rightWidth := lipgloss.Width(s.RightText)
		if padding := avail - leftWidth - rightWidth; padding > 0 {
			content = left + strings.Repeat(" ", padding) + s.RightText
		} else {
			content = utils.TruncateString(left, avail)
		}
	case left != "":
		content = utils.TruncateString(left, avail)
	default:
		content = s.RightText
	}

	return style.
		Width(s.Width).
		MaxWidth(s.Width).
		Render(content)
}

// getStyle returns the appropriate style based on message type
func (s *StatusBar) getStyle() lipgloss.Style {
	if !s.ShowMessage {
		return design.StatusBarStyle
	}
	switch s.MessageType {
	case MessageSuccess:
		return design.StatusBarSuccessStyle
	case MessageError:
		return design.StatusBarErrorStyle
	default:
		return design.StatusBarInfoStyle
	}
}
