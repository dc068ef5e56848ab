package panes

import (
	"strings"

	"chitui/internal/effects"
	"chitui/internal/watchdog"
	"chitui/internal/widgets"
)

// Content is what a leaf shows. The set of variants is closed; callers
// type-switch on it.
type Content interface {
	isContent()
}

type MenuContent struct{ *widgets.Menu }
type ViewerContent struct{ *widgets.Viewer }
type MarkdownContent struct{ *widgets.Markdown }
type FormContent struct{ *widgets.Form }
type WatchdogContent struct{ *widgets.WatchdogView }

func (MenuContent) isContent()     {}
func (ViewerContent) isContent()   {}
func (MarkdownContent) isContent() {}
func (FormContent) isContent()     {}
func (WatchdogContent) isContent() {}

// Text returns the copyable text of c.
func Text(c Content) string {
	switch c := c.(type) {
	case ViewerContent:
		return c.Text()
	case MarkdownContent:
		return c.Source()
	case WatchdogContent:
		return c.WatchdogView.Text()
	case MenuContent:
		if e, ok := c.Selected(); ok {
			if e.Value != "" {
				return e.Value
			}
			return e.Title
		}
	case FormContent:
		return c.SubmitCmd()
	}
	return ""
}

// Capturing reports whether c wants raw keystrokes, e.g. while a text field
// or filter has focus.
func Capturing(c Content) bool {
	switch c := c.(type) {
	case MenuContent:
		return c.Capturing()
	case FormContent:
		return c.Capturing()
	}
	return false
}

// Supervisor returns the watchdog supervisor behind c, if any.
func Supervisor(c Content) *watchdog.Supervisor {
	if w, ok := c.(WatchdogContent); ok && w.WatchdogView != nil {
		return w.Supervisor()
	}
	return nil
}

// Source says where a leaf's content comes from. At most one of Content,
// Split, Text, Value, Command and Path is normally set; they are checked
// in that order.
type Source struct {
	Title string

	Content Content
	Split   *LayoutSpec

	Text    string
	Value   interface{}
	Command string
	Path    string

	// Stream runs Command as an NDJSON stream with progress lines.
	Stream bool
	// Cached lets Command results come from the options cache.
	Cached bool
	// Markdown renders text payloads with glamour.
	Markdown bool
	// List turns the payload into a menu of choices found at Unwrap.
	List   bool
	Unwrap string
	// FormSubmit builds a form from the loaded schema; submitting runs this command.
	FormSubmit string
	// InitialText is shown while the leaf is loading.
	InitialText string
}

// LayoutSpec describes a split of two child sources.
type LayoutSpec struct {
	Orientation Orientation
	Ratio       Ratio
	A, B        Source
}

func (s Source) request(target effects.Target) (effects.Request, bool) {
	switch {
	case s.Command != "" && s.Stream:
		return effects.StreamCommand(target, s.Command), true
	case s.Command != "":
		req := effects.RunCommand(target, s.Command)
		req.Cached = s.Cached
		return req, true
	case s.Path != "":
		return effects.LoadSource(target, s.Path), true
	}
	return effects.Request{}, false
}

// Resolver turns sources and loaded payloads into content.
type Resolver interface {
	// Immediate resolves a file source synchronously when that is cheap.
	Immediate(src Source) (effects.Outcome, bool)
	// Content builds the view for a loaded payload.
	Content(src Source, out effects.Outcome) (Content, error)
	// Expand substitutes variables in commands found inside payloads.
	Expand(cmdline string) string
}

func titleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}
