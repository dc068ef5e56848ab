package config

import (
	"time"
)

// Widget kinds a menu item can open.
const (
	WidgetNone          = ""
	WidgetWatchdog      = "watchdog"
	WidgetPanel         = "panel"
	WidgetMarkdown      = "markdown"
	WidgetForm          = "form"
	WidgetLazyItems     = "lazy_items"
	WidgetAutoloadItems = "autoload_items"
	WidgetJSONViewer    = "json_viewer"
)

// Supported panel_size values.
var PanelSizes = []string{"1:1", "1:2", "2:1", "1:3", "3:1", "2:3", "3:2"}

// AppConfig is the top-level structure of a chi-index.yaml screen file.
type AppConfig struct {
	Header         string               `yaml:"header,omitempty"`
	Logo           string               `yaml:"logo,omitempty"`
	AutoEnter      string               `yaml:"auto_enter,omitempty"` // Menu item id opened when the screen loads
	CanClose       *bool                `yaml:"can_close,omitempty"`  // Esc may leave a widget screen; defaults to true
	HorizontalMenu []HorizontalMenuItem `yaml:"horizontal_menu,omitempty"`
	Menu           []MenuItem           `yaml:"menu"`

	// Path the config was read from; not part of the file.
	Source string `yaml:"-"`
}

// Closable reports whether Esc may close widget screens.
func (c AppConfig) Closable() bool {
	return c.CanClose == nil || *c.CanClose
}

// FindItem returns the menu item with the given id.
func (c AppConfig) FindItem(id string) (MenuItem, bool) {
	for _, item := range c.Menu {
		if item.ID == id {
			return item, true
		}
	}
	return MenuItem{}, false
}

// HorizontalMenuItem is a tab bound to an F-key that swaps in another screen config.
type HorizontalMenuItem struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Config string `yaml:"config,omitempty"` // Path relative to the config dir
}

// StatSpec declares a regex counted across all watchdog output.
type StatSpec struct {
	Label  string `yaml:"label"`
	Regexp string `yaml:"regexp"`
}

// MenuItem describes one entry of the main menu and the widget it opens.
type MenuItem struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Command    string `yaml:"command,omitempty"`
	Widget     string `yaml:"widget,omitempty"`
	PaneBTitle string `yaml:"pane_b_title,omitempty"`

	// Markdown
	Path    string `yaml:"path,omitempty"`
	Content string `yaml:"content,omitempty"`

	// Watchdog
	Commands         []string   `yaml:"commands,omitempty"`
	ExternalCheckCmd string     `yaml:"external_check_cmd,omitempty"`
	ExternalKillCmd  string     `yaml:"external_kill_cmd,omitempty"`
	Sequential       bool       `yaml:"sequential,omitempty"`
	AutoRestart      bool       `yaml:"auto_restart,omitempty"`
	MaxRetries       int        `yaml:"max_retries,omitempty"`
	RestartDelayMs   int        `yaml:"restart_delay_ms,omitempty"`
	StopOnFailure    bool       `yaml:"stop_on_failure,omitempty"`
	AllowedExitCodes []int      `yaml:"allowed_exit_codes,omitempty"`
	OnPanicExitCmd   string     `yaml:"on_panic_exit_cmd,omitempty"`
	Stats            []StatSpec `yaml:"stats,omitempty"`

	// Result shaping
	Unwrap      string `yaml:"unwrap,omitempty"`
	InitialText string `yaml:"initial_text,omitempty"`
	Stream      bool   `yaml:"stream,omitempty"`

	Children []MenuItem `yaml:"children,omitempty"`

	// Autoload items
	AutoExpand    *bool `yaml:"auto_expand,omitempty"`
	ExpandOnEnter bool  `yaml:"expand_on_enter,omitempty"`
	// Modal is accepted so existing configs parse; it has no effect.
	Modal bool `yaml:"modal,omitempty"`

	// Panel
	PanelLayout string `yaml:"panel_layout,omitempty"` // horizontal|vertical
	PanelSize   string `yaml:"panel_size,omitempty"`
	PaneACmd    string `yaml:"pane_a_cmd,omitempty"`
	PaneBCmd    string `yaml:"pane_b_cmd,omitempty"`
	PaneAYAML   string `yaml:"pane_a_yaml,omitempty"`
	PaneBYAML   string `yaml:"pane_b_yaml,omitempty"`

	// Form
	SubmitCmd string `yaml:"submit_cmd,omitempty"`
	SchemaCmd string `yaml:"schema_cmd,omitempty"`
}

// IsExternal reports whether a watchdog item observes an externally managed process.
func (m MenuItem) IsExternal() bool {
	return m.ExternalCheckCmd != ""
}

// PrefetchOnStart reports whether an autoload_items command runs as soon as
// the root screen is built. expand_on_enter defers it to the first enter;
// auto_expand defaults to true.
func (m MenuItem) PrefetchOnStart() bool {
	if m.Widget != WidgetAutoloadItems || m.Command == "" || m.ExpandOnEnter {
		return false
	}
	return m.AutoExpand == nil || *m.AutoExpand
}

// RestartDelay returns restart_delay_ms as a duration.
func (m MenuItem) RestartDelay() time.Duration {
	return time.Duration(m.RestartDelayMs) * time.Millisecond
}

// ExitCodes returns the allowed exit codes, defaulting to {0} when unset.
// An explicit empty list is returned as is and means any code is accepted.
func (m MenuItem) ExitCodes() []int {
	if m.AllowedExitCodes == nil {
		return []int{0}
	}
	return m.AllowedExitCodes
}
