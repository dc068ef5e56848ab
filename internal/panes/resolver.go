package panes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chitui/internal/config"
	"chitui/internal/effects"
	"chitui/internal/watchdog"
	"chitui/internal/widgets"
)

// DefaultResolver builds the standard widgets from payloads.
type DefaultResolver struct {
	// BaseDir is where relative paths resolve; usually the config dir.
	BaseDir string
	// InlineLimit is the largest file resolved during Build; zero disables it.
	InlineLimit int64
	Expander    config.Expander

	// Context and Spawner are used for watchdog specs found in payloads.
	Context context.Context
	Spawner watchdog.Spawner
	Now     func() time.Time
}

func (r DefaultResolver) Immediate(src Source) (effects.Outcome, bool) {
	if src.Path == "" || src.Command != "" {
		return effects.Outcome{}, false
	}
	return effects.ReadInline(r.BaseDir, src.Path, r.InlineLimit)
}

func (r DefaultResolver) Expand(cmdline string) string {
	return r.Expander.Expand(cmdline)
}

// Content picks the widget for a payload: a form when the source submits,
// a menu for lists and screen configs, a watchdog for watchdog specs,
// markdown when asked, else a viewer.
func (r DefaultResolver) Content(src Source, out effects.Outcome) (Content, error) {
	title := titleOr(src.Title, "Result")
	value := out.Value
	if env, ok := effects.ParseEnvelope(value); ok && !env.OK {
		return nil, envelopeError(env)
	}

	switch {
	case src.FormSubmit != "":
		schema, ok := widgets.SchemaFor(value, src.FormSubmit)
		if !ok && src.Command != "" {
			return nil, fmt.Errorf("no input schema for %s", src.FormSubmit)
		}
		return FormContent{widgets.NewForm(title, src.FormSubmit, widgets.FieldsFromSchema(schema))}, nil
	case src.List:
		return MenuContent{widgets.NewMenu(title, widgets.EntriesFromChoices(effects.Choices(value, src.Unwrap)))}, nil
	case src.Markdown:
		return MarkdownContent{widgets.NewMarkdown(title, string(out.Raw))}, nil
	}

	if obj, ok := value.(map[string]interface{}); ok {
		if isWatchdogSpec(obj) {
			return r.watchdog(title, obj)
		}
		if _, ok := obj["menu"].([]interface{}); ok {
			cfg, err := decodeAs[config.AppConfig](obj)
			if err != nil {
				return nil, err
			}
			return MenuContent{widgets.NewMenu(titleOr(cfg.Header, title), widgets.EntriesFromConfig(cfg.Menu))}, nil
		}
	}

	v := widgets.NewViewer(title)
	switch {
	case value == nil:
		v.SetText(string(out.Raw))
	case src.Unwrap != "":
		if items, ok := effects.Items(value, src.Unwrap); ok {
			v.SetValue(items)
		} else if found, ok := effects.GetByPath(value, src.Unwrap); ok {
			v.SetValue(found)
		} else {
			v.SetValue(value)
		}
	default:
		v.SetValue(value)
	}
	return ViewerContent{v}, nil
}

func envelopeError(env effects.Envelope) error {
	code := env.Code
	if code == "" {
		code = "error"
	}
	if env.Message == "" {
		return fmt.Errorf("backend reported %s", code)
	}
	return fmt.Errorf("%s: %s", code, env.Message)
}

func isWatchdogSpec(obj map[string]interface{}) bool {
	return specType(obj) == config.WidgetWatchdog || strings.EqualFold(str(obj, "widget"), config.WidgetWatchdog)
}

func (r DefaultResolver) watchdog(title string, obj map[string]interface{}) (Content, error) {
	item, err := decodeAs[config.MenuItem](obj)
	if err != nil {
		return nil, err
	}
	ctx := r.Context
	if ctx == nil {
		ctx = context.Background()
	}
	sup, err := watchdog.FromItem(ctx, item, r.Spawner, r.Expand)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	sup.Start(now())
	return WatchdogContent{widgets.NewWatchdogView(titleOr(item.Title, title), sup)}, nil
}

// decodeAs maps a decoded JSON/YAML document onto a config type. JSON is
// valid YAML, so the yaml tags on the config types apply.
func decodeAs[T any](v interface{}) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("failed to encode spec: %w", err)
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode spec: %w", err)
	}
	return out, nil
}
