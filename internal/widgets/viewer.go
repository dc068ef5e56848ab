package widgets

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"chitui/internal/tui/design"
	"chitui/internal/tui/keys"
	"chitui/internal/tui/utils"
)

// Viewer shows a command result: pretty JSON when the payload is
// structured, plain text otherwise. Long lines are word wrapped.
type Viewer struct {
	title string
	text  string
	value interface{}
	err   error

	vp        viewport.Model
	wrapWidth int
}

// NewViewer creates an empty viewer.
func NewViewer(title string) *Viewer {
	return &Viewer{title: title, vp: viewport.New(0, 0)}
}

func (v *Viewer) Title() string      { return v.title }
func (v *Viewer) Text() string       { return v.text }
func (v *Viewer) Value() interface{} { return v.value }
func (v *Viewer) Err() error         { return v.err }

// SetTitle renames the viewer.
func (v *Viewer) SetTitle(title string) { v.title = title }

// SetText replaces the content with plain text.
func (v *Viewer) SetText(s string) {
	v.text = strings.TrimRight(s, "\n")
	v.value = nil
	v.err = nil
	v.refresh(true)
}

// SetValue replaces the content with a structured document rendered as
// indented JSON.
func (v *Viewer) SetValue(val interface{}) {
	v.value = val
	v.err = nil
	v.text = Pretty(val)
	v.refresh(true)
}

// SetError shows err in place of the content.
func (v *Viewer) SetError(err error) {
	v.err = err
	v.value = nil
	v.text = err.Error()
	v.refresh(true)
}

// Pretty renders a decoded document as indented JSON; strings are returned
// as is.
func Pretty(val interface{}) string {
	if s, ok := val.(string); ok {
		return s
	}
	out, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

// HandleKey scrolls the content.
func (v *Viewer) HandleKey(msg tea.KeyMsg) bool {
	return scrollViewport(&v.vp, msg)
}

// View renders the content area of the viewer.
func (v *Viewer) View(width, height int) string {
	if width != v.vp.Width || height != v.vp.Height {
		v.vp.Width = width
		v.vp.Height = height
		v.refresh(false)
	}
	if v.text == "" {
		return design.DimStyle.Render("(empty)")
	}
	return v.vp.View()
}

func (v *Viewer) refresh(reset bool) {
	width := v.vp.Width
	if width <= 0 {
		width = 80
	}
	v.wrapWidth = width
	content := Wrap(v.text, width)
	if v.err != nil {
		content = design.TextErrorStyle.Render(content)
	}
	v.vp.SetContent(content)
	if reset {
		v.vp.GotoTop()
	}
}

// Wrap word-wraps text to width, hard-cutting words that do not fit.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	wrapped := wordwrap.String(utils.ExpandTabs(text), width)
	lines := strings.Split(wrapped, "\n")
	for i, l := range lines {
		lines[i] = utils.TruncateString(l, width)
	}
	return strings.Join(lines, "\n")
}

func scrollViewport(vp *viewport.Model, msg tea.KeyMsg) bool {
	k := keys.Default
	switch {
	case key.Matches(msg, k.Up):
		vp.LineUp(1)
	case key.Matches(msg, k.Down):
		vp.LineDown(1)
	case key.Matches(msg, k.PageUp):
		vp.ViewUp()
	case key.Matches(msg, k.PageDown):
		vp.ViewDown()
	case key.Matches(msg, k.Home):
		vp.GotoTop()
	case key.Matches(msg, k.Follow):
		vp.GotoBottom()
	default:
		return false
	}
	return true
}
