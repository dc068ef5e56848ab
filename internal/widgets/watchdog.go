package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"chitui/internal/tui/design"
	"chitui/internal/tui/keys"
	"chitui/internal/tui/utils"
	"chitui/internal/watchdog"
)

// WatchdogView renders a supervisor's sections stacked vertically with a
// stats footer. Scroll keys act on the focused section only.
type WatchdogView struct {
	title    string
	sup      *watchdog.Supervisor
	focused  int
	pageSize int
}

// NewWatchdogView wraps a supervisor.
func NewWatchdogView(title string, sup *watchdog.Supervisor) *WatchdogView {
	return &WatchdogView{title: title, sup: sup, pageSize: 10}
}

func (w *WatchdogView) Title() string                    { return w.title }
func (w *WatchdogView) Supervisor() *watchdog.Supervisor { return w.sup }
func (w *WatchdogView) FocusedSection() int              { return w.focused }

// Text returns the focused section's buffer for copying.
func (w *WatchdogView) Text() string {
	sec := w.sup.Section(w.focused)
	if sec == nil {
		return ""
	}
	return strings.Join(sec.Lines(), "\n")
}

// WatchdogAction is the operator command a key press mapped to.
type WatchdogAction int

const (
	WatchdogNone WatchdogAction = iota
	WatchdogScrolled
	WatchdogRestarted
	WatchdogToggled
)

// HandleKey applies scroll, section, stop/start and restart keys. Restart
// errors (external mode) are returned for the status bar.
func (w *WatchdogView) HandleKey(msg tea.KeyMsg, now time.Time) (WatchdogAction, error) {
	k := keys.Default
	page := max(w.pageSize-1, 1)
	switch {
	case key.Matches(msg, k.Restart):
		return WatchdogRestarted, w.sup.Restart(now)
	case key.Matches(msg, k.Toggle):
		w.sup.Toggle(now)
		return WatchdogToggled, nil
	case key.Matches(msg, k.Up):
		w.sup.Scroll(w.focused, 1)
	case key.Matches(msg, k.Down):
		w.sup.Scroll(w.focused, -1)
	case key.Matches(msg, k.PageUp):
		w.sup.Scroll(w.focused, page)
	case key.Matches(msg, k.PageDown):
		w.sup.Scroll(w.focused, -page)
	case key.Matches(msg, k.Home):
		w.sup.ScrollTop(w.focused)
	case key.Matches(msg, k.Follow):
		w.sup.Follow(w.focused)
	case key.Matches(msg, k.NextSection):
		w.focused = (w.focused + 1) % len(w.sup.Sections())
	case key.Matches(msg, k.PrevSection):
		n := len(w.sup.Sections())
		w.focused = (w.focused + n - 1) % n
	default:
		return WatchdogNone, nil
	}
	return WatchdogScrolled, nil
}

// Status is a one-line summary for the status bar.
func (w *WatchdogView) Status() string {
	if w.sup.External() {
		return "external: " + w.sup.ExternalStatus()
	}
	counts := map[watchdog.State]int{}
	for _, sec := range w.sup.Sections() {
		counts[sec.State()]++
	}
	var parts []string
	for _, st := range []watchdog.State{
		watchdog.StateRunning, watchdog.StateRetrying, watchdog.StateSucceeded,
		watchdog.StatePanicked, watchdog.StateStopped, watchdog.StateAborted,
	} {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(st.String())))
		}
	}
	if len(parts) == 0 {
		return "idle"
	}
	return strings.Join(parts, ", ")
}

// View renders every section and the stats footer into width x height.
func (w *WatchdogView) View(width, height int, focused bool) string {
	sections := w.sup.Sections()
	if width <= 0 || height <= 0 || len(sections) == 0 {
		return ""
	}

	var footer []string
	if w.sup.Stats().Len() > 0 {
		var parts []string
		for _, c := range w.sup.Stats().Counts() {
			parts = append(parts, fmt.Sprintf("%s: %d", c.Label, c.Count))
		}
		footer = append(footer, design.DimStyle.Render(utils.TruncateString(strings.Join(parts, "  "), width)))
	}

	avail := height - len(footer)
	per := max(avail/len(sections), 1)
	w.pageSize = max(per-1, 1)

	var out []string
	for i, sec := range sections {
		h := per
		if i == len(sections)-1 {
			h = max(avail-per*(len(sections)-1), 1)
		}
		out = append(out, w.renderSection(sec, width, h, focused && i == w.focused)...)
	}
	out = append(out, footer...)
	if len(out) > height {
		out = out[:height]
	}
	return strings.Join(out, "\n")
}

func (w *WatchdogView) renderSection(sec *watchdog.Section, width, height int, focused bool) []string {
	state := sec.State().String()
	badge := design.Badge(state, design.GetStateColor(state))

	info := fmt.Sprintf(" #%d runs:%d", sec.Index()+1, sec.Runs())
	if sec.Retries() > 0 {
		info += fmt.Sprintf(" retries:%d", sec.Retries())
	}
	if !sec.Following() {
		info += " (paused)"
	}
	marker := "  "
	if focused {
		marker = "▶ "
	}
	cmdWidth := max(width-len(info)-len(state)-6, 4)
	title := design.PaneTitleStyle
	if focused {
		title = design.PaneTitleFocusedStyle
	}
	header := marker + title.Render(utils.TruncateString(sec.Command(), cmdWidth)) + " " + badge + design.DimStyle.Render(info)

	lines := []string{header}
	if height <= 1 {
		return lines
	}
	for _, l := range sec.Window(height - 1) {
		lines = append(lines, utils.TruncateString(utils.ExpandTabs(l), width))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}
