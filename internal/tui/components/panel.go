package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chitui/internal/tui/design"
	"chitui/internal/tui/utils"
)

// PanelType defines the visual style of a panel
type PanelType int

const (
	PanelTypeDefault PanelType = iota
	PanelTypeSuccess
	PanelTypeError
	PanelTypeWarning
	PanelTypeInfo
)

func (pt PanelType) String() string {
	switch pt {
	case PanelTypeSuccess:
		return "Success"
	case PanelTypeError:
		return "Error"
	case PanelTypeWarning:
		return "Warning"
	case PanelTypeInfo:
		return "Info"
	default:
		return "Default"
	}
}

// Panel draws the border and title around one pane's content.
type Panel struct {
	Title   string
	Badge   string
	Content string
	Width   int
	Height  int
	Focused bool
	Type    PanelType
}

// NewPanel creates a new panel with default settings
func NewPanel(title string) *Panel {
	return &Panel{
		Title:  title,
		Width:  design.MinPaneWidth,
		Height: design.MinPaneHeight,
		Type:   PanelTypeDefault,
	}
}

// WithContent sets the panel content
func (p *Panel) WithContent(content string) *Panel {
	p.Content = content
	return p
}

// WithDimensions sets the outer size, border included
func (p *Panel) WithDimensions(width, height int) *Panel {
	p.Width = width
	p.Height = height
	return p
}

// WithType sets the panel type for styling
func (p *Panel) WithType(panelType PanelType) *Panel {
	p.Type = panelType
	return p
}

// WithBadge shows a short state label after the title
func (p *Panel) WithBadge(badge string) *Panel {
	p.Badge = badge
	return p
}

// SetFocused updates the focus state
func (p *Panel) SetFocused(focused bool) *Panel {
	p.Focused = focused
	return p
}

// InnerSize is the content area left inside the chrome of a w x h panel,
// title line excluded.
func InnerSize(width, height int) (int, int) {
	frameW := design.PaneStyle.GetHorizontalFrameSize()
	frameH := design.PaneStyle.GetVerticalFrameSize()
	return max(width-frameW, 1), max(height-frameH-1, 1)
}

// Render returns the styled panel, exactly Width x Height cells.
func (p *Panel) Render() string {
	if p.Width < design.MinPaneWidth {
		p.Width = design.MinPaneWidth
	}
	if p.Height < design.MinPaneHeight {
		p.Height = design.MinPaneHeight
	}

	style := p.getStyle()
	innerWidth := max(p.Width-style.GetHorizontalFrameSize(), 1)
	innerHeight := max(p.Height-style.GetVerticalFrameSize(), 1)

	lines := []string{p.renderTitle(innerWidth)}
	if p.Content != "" {
		for _, line := range strings.Split(p.Content, "\n") {
			if len(lines) >= innerHeight {
				break
			}
			if lipgloss.Width(line) > innerWidth {
				line = utils.TruncateString(line, innerWidth)
			}
			lines = append(lines, line)
		}
	}
	for len(lines) < innerHeight {
		lines = append(lines, "")
	}
	if len(lines) > innerHeight {
		lines = lines[:innerHeight]
	}

	// Width and Height on a lipgloss style exclude the border.
	return style.
		Width(p.Width - style.GetHorizontalBorderSize()).
		Height(p.Height - style.GetVerticalBorderSize()).
		MaxHeight(p.Height).
		Render(strings.Join(lines, "\n"))
}

// getStyle returns the appropriate style based on panel state
func (p *Panel) getStyle() lipgloss.Style {
	baseStyle := design.PaneStyle
	if p.Focused {
		baseStyle = design.PaneFocusedStyle
	}

	switch p.Type {
	case PanelTypeSuccess:
		return baseStyle.Copy().BorderForeground(design.ColorSuccess)
	case PanelTypeError:
		return baseStyle.Copy().BorderForeground(design.ColorError)
	case PanelTypeWarning:
		return baseStyle.Copy().BorderForeground(design.ColorWarning)
	case PanelTypeInfo:
		return baseStyle.Copy().BorderForeground(design.ColorInfo)
	default:
		return baseStyle
	}
}

// renderTitle renders the title and badge on one line
func (p *Panel) renderTitle(width int) string {
	if p.Title == "" && p.Badge == "" {
		return ""
	}
	titleStyle := design.PaneTitleStyle
	if p.Focused {
		titleStyle = design.PaneTitleFocusedStyle
	}

	badgeWidth := 0
	if p.Badge != "" {
		badgeWidth = lipgloss.Width(p.Badge) + 1
	}
	title := titleStyle.Render(utils.TruncateString(p.Title, max(width-badgeWidth, 1)))
	if p.Badge != "" {
		title += " " + p.Badge
	}
	return title
}
