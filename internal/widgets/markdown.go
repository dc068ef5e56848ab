package widgets

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"chitui/pkg/logging"
)

// MarkdownStyle is the glamour standard style used for rendering. "dark"
// keeps output deterministic when no terminal is attached.
var MarkdownStyle = "dark"

// Markdown renders a markdown document with glamour, re-rendering only
// when the width changes.
type Markdown struct {
	title  string
	source string

	vp            viewport.Model
	renderedWidth int
}

// NewMarkdown creates a markdown view over source.
func NewMarkdown(title, source string) *Markdown {
	return &Markdown{title: title, source: source, vp: viewport.New(0, 0)}
}

func (m *Markdown) Title() string  { return m.title }
func (m *Markdown) Source() string { return m.source }

// SetSource replaces the document.
func (m *Markdown) SetSource(source string) {
	m.source = source
	m.renderedWidth = 0
}

// HandleKey scrolls the document.
func (m *Markdown) HandleKey(msg tea.KeyMsg) bool {
	return scrollViewport(&m.vp, msg)
}

// View renders the document into the content area.
func (m *Markdown) View(width, height int) string {
	m.vp.Width = width
	m.vp.Height = height
	if width != m.renderedWidth {
		m.vp.SetContent(RenderMarkdown(m.source, width))
		m.renderedWidth = width
	}
	return m.vp.View()
}

// RenderMarkdown renders source at width. If glamour fails the source is
// returned wrapped as plain text.
func RenderMarkdown(source string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(MarkdownStyle),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		var out string
		out, err = r.Render(source)
		if err == nil {
			return strings.Trim(out, "\n")
		}
	}
	logging.Warn("Widgets", "markdown render failed: %v", err)
	return Wrap(source, width)
}
