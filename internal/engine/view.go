package engine

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"chitui/internal/panes"
	"chitui/internal/tui/components"
	"chitui/internal/tui/design"
	"chitui/internal/tui/keys"
	"chitui/pkg/logging"
)

// View renders the whole frame: header, the top screen's pane tree, the
// optional debug log and the status bar.
func (e *Engine) View() string {
	if len(e.screens) == 0 {
		return ""
	}
	width, height := max(e.width, design.MinPaneWidth), max(e.height, design.MinPaneHeight+2)
	top := e.Top()

	header := components.NewHeader(e.headerTitle()).WithWidth(width)
	if len(e.base.HorizontalMenu) > 0 {
		tabs := make([]string, 0, len(e.base.HorizontalMenu))
		for _, t := range e.base.HorizontalMenu {
			tabs = append(tabs, firstNonEmpty(t.Title, t.ID))
		}
		header = header.WithTabs(tabs, e.activeTab)
	}
	if depth := len(e.screens); depth > 1 {
		header = header.WithRightContent(fmt.Sprintf("depth %d · esc back", depth))
	}

	bodyH := max(height-header.Height()-1, 1)
	debugH := 0
	if e.debug {
		debugH = max(bodyH/3, design.MinPaneHeight)
		if debugH >= bodyH {
			debugH = 0
		}
	}
	treeH := bodyH - debugH

	var body string
	if e.help {
		body = e.renderHelp(width, treeH)
	} else {
		body = e.renderNode(top.Tree, top.Tree.Root(), width, treeH)
	}
	parts := []string{header.Render(), body}
	if debugH > 0 {
		parts = append(parts, e.renderDebug(width, debugH))
	}
	parts = append(parts, e.renderStatus(width))
	return components.JoinVertical(parts...)
}

// headerTitle is the breadcrumb of open screens.
func (e *Engine) headerTitle() string {
	titles := make([]string, 0, len(e.screens))
	for _, s := range e.screens {
		titles = append(titles, s.Title)
	}
	if len(titles) > 3 {
		titles = append([]string{"…"}, titles[len(titles)-2:]...)
	}
	return strings.Join(titles, " › ")
}

// renderNode draws id into exactly w x h cells, using the same partition
// as Tree.Layout.
func (e *Engine) renderNode(tree *panes.Tree, id panes.ID, w, h int) string {
	p := tree.Pane(id)
	if p == nil || w <= 0 || h <= 0 {
		return components.Fill("", w, h)
	}
	if p.IsSplit() {
		a, b := p.Children()
		if p.Orientation() == panes.Horizontal {
			wa, wb := panes.Partition(w, p.Ratio())
			return components.JoinHorizontal(0, e.renderNode(tree, a, wa, h), e.renderNode(tree, b, wb, h))
		}
		ha, hb := panes.Partition(h, p.Ratio())
		return components.JoinVertical(e.renderNode(tree, a, w, ha), e.renderNode(tree, b, w, hb))
	}
	if w < design.MinPaneWidth || h < design.MinPaneHeight {
		return components.Fill("", w, h)
	}

	focused := tree.Focused() == id
	innerW, innerH := components.InnerSize(w, h)
	panel := components.NewPanel(p.Title).
		WithDimensions(w, h).
		WithContent(e.leafView(p, innerW, innerH, focused)).
		SetFocused(focused)
	switch p.Status {
	case panes.StatusLoading:
		panel = panel.WithType(components.PanelTypeWarning).
			WithBadge(strings.TrimSpace(e.spinner + " " + p.Status.String()))
	case panes.StatusFailed:
		panel = panel.WithType(components.PanelTypeError).WithBadge(p.Status.String())
	}
	return panel.Render()
}

func (e *Engine) leafView(p *panes.Pane, w, h int, focused bool) string {
	switch c := p.Content.(type) {
	case panes.MenuContent:
		return c.View(w, h, focused)
	case panes.ViewerContent:
		return c.View(w, h)
	case panes.MarkdownContent:
		return c.View(w, h)
	case panes.FormContent:
		return c.View(w, h, focused)
	case panes.WatchdogContent:
		return c.View(w, h, focused)
	}
	if p.Progress != nil {
		return progressText(p.Progress)
	}
	return ""
}

func (e *Engine) renderHelp(w, h int) string {
	hm := help.New()
	hm.ShowAll = true
	box := design.OverlayStyle.Render(
		design.OverlayTitleStyle.Render("Keys") + "\n" + hm.FullHelpView(keys.Default.FullHelp()))
	return components.Fill(lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, box), w, h)
}

func (e *Engine) renderDebug(w, h int) string {
	_, innerH := components.InnerSize(w, h)
	entries := e.logs
	if len(entries) > innerH {
		entries = entries[len(entries)-innerH:]
	}
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = logStyle(entry.Level).Render(entry.Line())
	}
	return components.NewPanel("Debug log").
		WithDimensions(w, h).
		WithType(components.PanelTypeInfo).
		WithContent(strings.Join(lines, "\n")).
		Render()
}

func logStyle(level logging.LogLevel) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return design.LogDebugStyle
	case logging.LevelWarn:
		return design.LogWarnStyle
	case logging.LevelError:
		return design.LogErrorStyle
	default:
		return design.LogInfoStyle
	}
}

// statusLine is the text the status bar shows when no toast is live.
func (e *Engine) statusLine() string {
	if e.progress != "" {
		return strings.TrimSpace(e.spinner + " " + e.progress)
	}
	p := e.Top().Tree.FocusedPane()
	if p == nil {
		return ""
	}
	if c, ok := p.Content.(panes.WatchdogContent); ok {
		return c.Status()
	}
	switch p.Status {
	case panes.StatusLoading:
		return strings.TrimSpace(e.spinner + " loading " + p.Title)
	case panes.StatusFailed:
		if p.Err != nil {
			return p.Title + ": " + firstLine(p.Err.Error())
		}
	}
	return p.Title
}

func (e *Engine) renderStatus(w int) string {
	bar := components.NewStatusBar(w).WithRightText("? help · q quit")
	if t, ok := e.Toast(); ok {
		return bar.WithMessage(t.Message, t.Kind).Render()
	}
	return bar.WithLeftText(e.statusLine()).Render()
}
