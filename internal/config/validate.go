package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// MaxRetriesLimit caps max_retries on watchdog items.
const MaxRetriesLimit = 1000

// ValidationErrors collects every problem found in a config.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return v[0]
	}
	return fmt.Sprintf("%d problems:\n  - %s", len(v), strings.Join(v, "\n  - "))
}

// Validate checks cross-field rules that yaml decoding cannot express.
func Validate(cfg AppConfig) error {
	var errs ValidationErrors
	seen := make(map[string]int)
	validateItems(cfg.Menu, "menu", seen, &errs)

	for i, tab := range cfg.HorizontalMenu {
		if tab.ID == "" {
			errs = append(errs, fmt.Sprintf("horizontal_menu[%d]: id is required", i))
		}
	}
	if len(cfg.HorizontalMenu) > 12 {
		errs = append(errs, fmt.Sprintf("horizontal_menu: at most 12 tabs are supported, got %d", len(cfg.HorizontalMenu)))
	}
	if cfg.AutoEnter != "" {
		if _, ok := seen[cfg.AutoEnter]; !ok {
			errs = append(errs, fmt.Sprintf("auto_enter: unknown menu id '%s'", cfg.AutoEnter))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateItems(items []MenuItem, where string, seen map[string]int, errs *ValidationErrors) {
	for i, m := range items {
		loc := fmt.Sprintf("%s[%d]", where, i)
		if m.ID == "" {
			*errs = append(*errs, fmt.Sprintf("%s: id is required", loc))
		} else if _, dup := seen[m.ID]; dup {
			*errs = append(*errs, fmt.Sprintf("duplicate menu id: '%s' at %s", m.ID, loc))
		} else {
			seen[m.ID] = i
		}
		validateItem(m, errs)
		if len(m.Children) > 0 {
			validateItems(m.Children, loc+".children", seen, errs)
		}
	}
}

func validateItem(m MenuItem, errs *ValidationErrors) {
	add := func(format string, args ...interface{}) {
		*errs = append(*errs, fmt.Sprintf("'%s': ", m.ID)+fmt.Sprintf(format, args...))
	}

	switch m.Widget {
	case WidgetNone, WidgetJSONViewer:
	case WidgetPanel:
		if m.PaneACmd == "" && m.PaneBCmd == "" && m.PaneAYAML == "" && m.PaneBYAML == "" {
			add("panel must specify at least one of pane_a/b cmd/yaml")
		}
		if m.PanelLayout != "" && m.PanelLayout != "horizontal" && m.PanelLayout != "vertical" {
			add("panel_layout must be horizontal or vertical, got '%s'", m.PanelLayout)
		}
		if m.PanelSize != "" && !slices.Contains(PanelSizes, m.PanelSize) {
			add("panel_size '%s' is not one of %s", m.PanelSize, strings.Join(PanelSizes, ", "))
		}
	case WidgetLazyItems, WidgetAutoloadItems:
		if m.Command == "" {
			add("%s requires a command", m.Widget)
		}
	case WidgetMarkdown:
		if m.Path == "" && m.Content == "" {
			add("markdown requires path or content")
		}
	case WidgetWatchdog:
		if len(m.Commands) == 0 && !m.IsExternal() {
			add("watchdog requires commands unless external_check_cmd is set")
		}
		if m.MaxRetries < 0 || m.MaxRetries > MaxRetriesLimit {
			add("max_retries must be between 0 and %d", MaxRetriesLimit)
		}
		if m.RestartDelayMs < 0 {
			add("restart_delay_ms must not be negative")
		}
		for _, s := range m.Stats {
			if s.Label == "" {
				add("stats entries need a label")
			}
			if _, err := regexp.Compile(s.Regexp); err != nil {
				add("stats '%s': invalid regexp: %v", s.Label, err)
			}
		}
	case WidgetForm:
		if m.SubmitCmd == "" {
			add("form requires submit_cmd")
		}
	default:
		add("unknown widget '%s'", m.Widget)
	}
}
