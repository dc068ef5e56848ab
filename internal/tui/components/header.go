package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chitui/internal/tui/design"
	"chitui/internal/tui/utils"
)

// Header represents the application header
type Header struct {
	Title        string
	Subtitle     string
	Tabs         []string
	ActiveTab    int
	Width        int
	RightContent string
}

// NewHeader creates a new header
func NewHeader(title string) *Header {
	return &Header{
		Title:     title,
		Width:     80,
		ActiveTab: -1,
	}
}

// WithSubtitle adds a subtitle
func (h *Header) WithSubtitle(subtitle string) *Header {
	h.Subtitle = subtitle
	return h
}

// WithTabs shows the horizontal menu; active is -1 when none is selected.
func (h *Header) WithTabs(tabs []string, active int) *Header {
	h.Tabs = tabs
	h.ActiveTab = active
	return h
}

// WithRightContent adds content to the right side
func (h *Header) WithRightContent(content string) *Header {
	h.RightContent = content
	return h
}

// WithWidth sets the header width
func (h *Header) WithWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the title line, followed by a tab line when tabs are set.
func (h *Header) Render() string {
	leftParts := []string{h.Title}
	if h.Subtitle != "" {
		leftParts = append(leftParts, design.TextSecondaryStyle.Render(h.Subtitle))
	}
	leftContent := strings.Join(leftParts, " ")

	content := leftContent
	availableWidth := h.Width - design.SpaceSM*2
	if h.RightContent != "" {
		leftWidth := lipgloss.Width(leftContent)
		rightWidth := lipgloss.Width(h.RightContent)
		if leftWidth+rightWidth+2 <= availableWidth {
			content = leftContent + strings.Repeat(" ", availableWidth-leftWidth-rightWidth) + h.RightContent
		} else {
			content = utils.TruncateString(leftContent, availableWidth)
		}
	}

	line := design.HeaderStyle.Copy().
		Width(h.Width).
		MaxWidth(h.Width).
		Render(content)
	if len(h.Tabs) == 0 {
		return line
	}
	return line + "\n" + h.renderTabs()
}

func (h *Header) renderTabs() string {
	var parts []string
	for i, tab := range h.Tabs {
		label := fmt.Sprintf("F%d %s", i+1, tab)
		if i == h.ActiveTab {
			parts = append(parts, design.TabActiveStyle.Render(label))
		} else {
			parts = append(parts, design.TabStyle.Render(label))
		}
	}
	return lipgloss.NewStyle().MaxWidth(h.Width).Render(strings.Join(parts, " "))
}

// Height is the number of lines Render produces.
func (h *Header) Height() int {
	if len(h.Tabs) == 0 {
		return 1
	}
	return 2
}
