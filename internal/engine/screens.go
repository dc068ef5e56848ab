package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"chitui/internal/config"
	"chitui/internal/effects"
	"chitui/internal/panes"
	"chitui/internal/tui/components"
	"chitui/internal/watchdog"
	"chitui/internal/widgets"
	"chitui/pkg/logging"
)

const rootHint = "Select an item and press enter."

// ErrUnknownItem is returned when a menu item id does not exist.
var ErrUnknownItem = errors.New("unknown menu item")

// Screen is one level of the navigation stack.
type Screen struct {
	Kind  string
	Title string
	Tree  *panes.Tree
	// Result is the leaf that command output goes to, NoID if there is none.
	Result panes.ID
}

// Top is the visible screen.
func (e *Engine) Top() *Screen {
	return e.screens[len(e.screens)-1]
}

// Screen kinds, reported by the headless summary.
const (
	KindMenu     = "Menu"
	KindResult   = "Result"
	KindWatchdog = "Watchdog"
	KindPanel    = "Panel"
	KindMarkdown = "Markdown"
	KindForm     = "Form"
	KindList     = "List"
	KindJSON     = "Json"
)

func (e *Engine) newScreen(kind, title string, src panes.Source, withResult bool) *Screen {
	e.seq++
	tree, reqs := panes.BuildSource(fmt.Sprintf("screen%d", e.seq), src, e.resolver)
	s := &Screen{Kind: kind, Title: title, Tree: tree, Result: panes.NoID}
	if ring := tree.Ring(); withResult && len(ring) > 1 {
		s.Result = ring[len(ring)-1]
	}
	e.submit(tree, reqs)
	return s
}

func (e *Engine) push(s *Screen) {
	e.screens = append(e.screens, s)
	logging.Debug("Engine", "opened %s (depth %d)", s.Title, len(e.screens))
}

// pop closes the top screen. The root screen never closes, nor do widget
// screens when the config sets can_close: false.
func (e *Engine) pop() bool {
	if len(e.screens) <= 1 || !e.cfg.Closable() {
		return false
	}
	top := e.Top()
	e.closeScreen(top)
	e.screens = e.screens[:len(e.screens)-1]
	return true
}

// closeScreen cancels the screen's effects and stops its watchdogs.
func (e *Engine) closeScreen(s *Screen) {
	for _, target := range s.Tree.Targets() {
		e.sched.Cancel(target)
	}
	s.Tree.Close()
}

// menuScreen is the menu on the left and a result pane on the right.
func (e *Engine) menuScreen(title string, items []config.MenuItem) *Screen {
	menu := widgets.NewMenu(title, widgets.EntriesFromConfig(items))
	return e.newScreen(KindMenu, title, panes.Source{Split: &panes.LayoutSpec{
		Orientation: panes.Horizontal,
		Ratio:       panes.Ratio{A: 1, B: 3},
		A:           panes.Source{Title: "Menu", Content: panes.MenuContent{Menu: menu}},
		B:           panes.Source{Title: "Result", Text: rootHint},
	}}, true)
}

// setRoot replaces the whole stack with the root screen of cfg.
func (e *Engine) setRoot(cfg config.AppConfig) {
	for _, s := range e.screens {
		e.closeScreen(s)
	}
	e.cfg = cfg
	e.screens = []*Screen{e.menuScreen(firstNonEmpty(cfg.Header, "Main"), cfg.Menu)}

	for _, item := range cfg.Menu {
		if item.PrefetchOnStart() {
			req := effects.RunCommand(effects.Target("prefetch/"+item.ID), e.expander.Expand(item.Command))
			req.Cached = true
			e.sched.Submit(req)
		}
	}
	if cfg.AutoEnter != "" {
		if err := e.openID(cfg.AutoEnter); err != nil {
			logging.Warn("Engine", "auto_enter %s: %v", cfg.AutoEnter, err)
		}
	}
}

func (e *Engine) openID(id string) error {
	item, ok := e.cfg.FindItem(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return e.open(item, e.screens[0])
}

// enter opens a root item on request of the headless runner.
func (e *Engine) enter(id string) bool {
	if err := e.openID(id); err != nil {
		e.enterErr = err
		e.toast(components.MessageError, err.Error())
		return true
	}
	e.enterDone = true
	return true
}

// open runs an item's command into from's result pane, or pushes the
// screen for its widget.
func (e *Engine) open(item config.MenuItem, from *Screen) error {
	title := item.Title
	if title == "" {
		title = item.ID
	}
	expand := e.expander.Expand

	switch item.Widget {
	case config.WidgetNone:
		if len(item.Children) > 0 {
			e.push(e.menuScreen(title, item.Children))
			return nil
		}
		if item.Command == "" {
			return fmt.Errorf("%s has nothing to run", title)
		}
		src := panes.Source{
			Title:       firstNonEmpty(item.PaneBTitle, title),
			Command:     expand(item.Command),
			Stream:      item.Stream,
			Unwrap:      item.Unwrap,
			InitialText: item.InitialText,
		}
		if from == nil || from.Result == panes.NoID {
			e.push(e.newScreen(KindResult, title, src, false))
			return nil
		}
		e.submit(from.Tree, from.Tree.Replace(from.Result, src))
		return nil

	case config.WidgetWatchdog:
		sup, err := watchdog.FromItem(e.ctx, item, e.opts.Spawner, expand)
		if err != nil {
			return err
		}
		sup.Start(e.now())
		view := widgets.NewWatchdogView(title, sup)
		e.push(e.newScreen(KindWatchdog, title, panes.Source{Title: title, Content: panes.WatchdogContent{WatchdogView: view}}, false))
		return nil

	case config.WidgetPanel:
		spec := panes.LayoutSpec{
			Orientation: panes.ParseOrientation(item.PanelLayout),
			Ratio:       panes.ParseRatio(item.PanelSize),
			A:           paneSource("Pane A", item.PaneACmd, item.PaneAYAML, expand),
			B:           paneSource(firstNonEmpty(item.PaneBTitle, "Pane B"), item.PaneBCmd, item.PaneBYAML, expand),
		}
		e.push(e.newScreen(KindPanel, title, panes.Source{Title: title, Split: &spec}, true))
		return nil

	case config.WidgetMarkdown:
		src := panes.Source{Title: title, Markdown: true, Path: item.Path, Text: item.Content}
		e.push(e.newScreen(KindMarkdown, title, src, false))
		return nil

	case config.WidgetForm:
		form := panes.Source{Title: title, FormSubmit: expand(item.SubmitCmd)}
		if item.SchemaCmd != "" {
			form.Command = expand(item.SchemaCmd)
		}
		e.push(e.newScreen(KindForm, title, panes.Source{Title: title, Split: &panes.LayoutSpec{
			Orientation: panes.Horizontal,
			Ratio:       panes.Even,
			A:           form,
			B:           panes.Source{Title: "Result", Text: "Submit with ctrl+s."},
		}}, true))
		return nil

	case config.WidgetLazyItems, config.WidgetAutoloadItems:
		list := panes.Source{
			Title:   title,
			Command: expand(item.Command),
			List:    true,
			Unwrap:  item.Unwrap,
			Cached:  true,
		}
		e.push(e.newScreen(KindList, title, panes.Source{Title: title, Split: &panes.LayoutSpec{
			Orientation: panes.Horizontal,
			Ratio:       panes.Ratio{A: 1, B: 2},
			A:           list,
			B:           panes.Source{Title: firstNonEmpty(item.PaneBTitle, "Details"), Text: rootHint},
		}}, true))
		return nil

	case config.WidgetJSONViewer:
		src := panes.Source{Title: title, Unwrap: item.Unwrap, Path: item.Path}
		if item.Command != "" {
			src.Command = expand(item.Command)
		}
		e.push(e.newScreen(KindJSON, title, src, false))
		return nil
	}
	return fmt.Errorf("%s: unsupported widget %q", title, item.Widget)
}

func paneSource(title, cmd, yamlPath string, expand func(string) string) panes.Source {
	src := panes.Source{Title: title}
	switch {
	case cmd != "":
		src.Command = expand(cmd)
	case yamlPath != "":
		src.Path = yamlPath
	}
	return src
}

// switchTab loads the screen config bound to F(n+1). A tab without a
// config file returns to the startup config.
func (e *Engine) switchTab(n int) bool {
	tabs := e.base.HorizontalMenu
	if n < 0 || n >= len(tabs) {
		return false
	}
	tab := tabs[n]
	cfg := e.base
	if tab.Config != "" {
		loaded, err := e.opts.Load(config.ResolvePath(e.configDir, tab.Config))
		if err != nil {
			logging.Error("Engine", err, "tab %s", tab.ID)
			e.toast(components.MessageError, firstLine(err.Error()))
			return true
		}
		cfg = loaded
	}
	e.setRoot(cfg)
	e.activeTab = n
	return true
}

// reload re-reads a changed config file. On failure the current screens
// stay as they are.
func (e *Engine) reload(path string) bool {
	isCfg, isBase := samePath(path, e.cfg.Source), samePath(path, e.base.Source)
	if !isCfg && !isBase {
		return false
	}
	cfg, err := e.opts.Load(path)
	if err != nil {
		logging.Error("Engine", err, "reloading %s", path)
		e.toast(components.MessageError, "config reload failed: "+firstLine(err.Error()))
		return true
	}
	if isBase {
		e.base = cfg
	}
	if isCfg {
		e.setRoot(cfg)
	}
	e.toast(components.MessageSuccess, "config reloaded")
	return true
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func progressText(p *effects.Progress) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	if p.Stage != "" {
		b.WriteString("[" + p.Stage + "] ")
	}
	b.WriteString(p.Message)
	if p.Percent > 0 {
		fmt.Fprintf(&b, " (%.0f%%)", p.Percent)
	}
	return strings.TrimSpace(b.String())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
