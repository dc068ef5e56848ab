package engine

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"chitui/internal/panes"
	"chitui/internal/tui/components"
	"chitui/internal/tui/keys"
	"chitui/internal/widgets"
	"chitui/pkg/logging"
)

// handleKey applies global keys, then hands the rest to the focus manager.
// While a text field or filter has focus only ctrl keys stay global.
func (e *Engine) handleKey(msg tea.KeyMsg, now time.Time) bool {
	k := keys.Default
	if msg.Type == tea.KeyCtrlC {
		e.quit = true
		return true
	}
	if e.help {
		e.help = false
		return true
	}

	switch {
	case key.Matches(msg, k.ToggleDebug):
		e.debug = !e.debug
		return true
	case key.Matches(msg, k.Reload):
		e.reloadFocused()
		return true
	}

	top := e.Top()
	capturing := false
	if p := top.Tree.FocusedPane(); p != nil {
		capturing = panes.Capturing(p.Content)
	}
	if !capturing {
		switch {
		case key.Matches(msg, k.Quit):
			e.quit = true
			return true
		case key.Matches(msg, k.Help):
			e.help = true
			return true
		case key.Matches(msg, k.Copy):
			e.copyFocused()
			return true
		}
		if n := keys.IsFunctionKey(msg.String()); n > 0 {
			return e.switchTab(n - 1)
		}
	}

	consumed := top.Tree.RouteInput(msg, func(p *panes.Pane, msg tea.KeyMsg) bool {
		return e.leafKey(top, p, msg, now)
	})
	if !consumed && key.Matches(msg, k.Esc) {
		return e.pop()
	}
	return consumed
}

func (e *Engine) leafKey(s *Screen, p *panes.Pane, msg tea.KeyMsg, now time.Time) bool {
	switch c := p.Content.(type) {
	case panes.MenuContent:
		switch c.HandleKey(msg) {
		case widgets.MenuActivated:
			e.activate(s, p, c.Menu)
			return true
		case widgets.MenuMoved:
			return true
		}
	case panes.ViewerContent:
		return c.HandleKey(msg)
	case panes.MarkdownContent:
		return c.HandleKey(msg)
	case panes.FormContent:
		switch c.HandleKey(msg) {
		case widgets.FormSubmitted:
			e.submitForm(s, c.Form)
			return true
		case widgets.FormEdited:
			return true
		}
	case panes.WatchdogContent:
		act, err := c.HandleKey(msg, now)
		if err != nil {
			e.toast(components.MessageError, err.Error())
		}
		switch act {
		case widgets.WatchdogRestarted:
			if err == nil {
				e.toast(components.MessageInfo, "restarted "+c.Title())
			}
		case widgets.WatchdogToggled:
			e.toast(components.MessageInfo, c.Title()+": "+c.Status())
		}
		return act != widgets.WatchdogNone
	}
	return false
}

// activate opens the selected item. Rows of a dynamic list have no item;
// their value is shown in the screen's result pane.
func (e *Engine) activate(s *Screen, p *panes.Pane, menu *widgets.Menu) {
	entry, ok := menu.Selected()
	if !ok {
		return
	}
	if entry.Item != nil {
		if err := e.open(*entry.Item, s); err != nil {
			logging.Error("Engine", err, "opening %s", entry.ID)
			e.toast(components.MessageError, firstLine(err.Error()))
		}
		return
	}
	if s.Result != panes.NoID && s.Result != p.ID() {
		e.submit(s.Tree, s.Tree.Replace(s.Result, panes.Source{Title: entry.Title, Text: entry.Value}))
		return
	}
	e.toast(components.MessageInfo, "selected "+entry.Value)
}

func (e *Engine) submitForm(s *Screen, form *widgets.Form) {
	cmd, err := form.Submit()
	if err != nil {
		form.SetMessage("fix the highlighted fields")
		e.toast(components.MessageError, err.Error())
		return
	}
	form.SetMessage("")
	if s.Result == panes.NoID {
		e.toast(components.MessageInfo, cmd)
		return
	}
	e.submit(s.Tree, s.Tree.Replace(s.Result, panes.Source{Title: "Result", Command: cmd}))
	e.toast(components.MessageInfo, "running "+cmd)
}

func (e *Engine) copyFocused() {
	p := e.Top().Tree.FocusedPane()
	if p == nil {
		return
	}
	text := panes.Text(p.Content)
	if text == "" {
		e.toast(components.MessageInfo, "nothing to copy")
		return
	}
	if err := e.opts.Clipboard(text); err != nil {
		logging.Error("Engine", err, "copying %s", p.Title)
		e.toast(components.MessageError, "copy failed: "+err.Error())
		return
	}
	e.toast(components.MessageSuccess, "copied to clipboard")
}

func (e *Engine) reloadFocused() {
	top := e.Top()
	p := top.Tree.FocusedPane()
	if p == nil {
		return
	}
	reqs := top.Tree.Reload(p.ID())
	if len(reqs) == 0 {
		e.toast(components.MessageInfo, "nothing to reload")
		return
	}
	e.submit(top.Tree, reqs)
}
