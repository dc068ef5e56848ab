package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AppConfig
		wantErr string
	}{
		{
			name: "valid mixed menu",
			cfg: AppConfig{Menu: []MenuItem{
				{ID: "a", Command: "echo"},
				{ID: "b", Widget: WidgetMarkdown, Content: "# hi"},
				{ID: "c", Widget: WidgetWatchdog, ExternalCheckCmd: "pgrep x"},
				{ID: "d", Widget: WidgetPanel, PaneACmd: "echo {}", PanelSize: "1:3"},
			}},
		},
		{
			name:    "duplicate id",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "a"}, {ID: "a"}}},
			wantErr: "duplicate menu id: 'a'",
		},
		{
			name: "duplicate id nested in children",
			cfg: AppConfig{Menu: []MenuItem{
				{ID: "a", Children: []MenuItem{{ID: "x"}}},
				{ID: "x"},
			}},
			wantErr: "duplicate menu id: 'x'",
		},
		{
			name:    "panel without panes",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "p", Widget: WidgetPanel}}},
			wantErr: "at least one of pane_a/b",
		},
		{
			name:    "panel bad size",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "p", Widget: WidgetPanel, PaneAYAML: "a.yaml", PanelSize: "5:1"}}},
			wantErr: "panel_size '5:1'",
		},
		{
			name:    "lazy items without command",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "l", Widget: WidgetLazyItems}}},
			wantErr: "lazy_items requires a command",
		},
		{
			name:    "markdown without source",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "m", Widget: WidgetMarkdown}}},
			wantErr: "markdown requires path or content",
		},
		{
			name:    "watchdog without commands",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "w", Widget: WidgetWatchdog}}},
			wantErr: "watchdog requires commands",
		},
		{
			name:    "watchdog with only a kill command",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "w", Widget: WidgetWatchdog, ExternalKillCmd: "pkill x"}}},
			wantErr: "watchdog requires commands unless external_check_cmd is set",
		},
		{
			name:    "watchdog retries above limit",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "w", Widget: WidgetWatchdog, Commands: []string{"x"}, MaxRetries: 1001}}},
			wantErr: "max_retries must be between 0 and 1000",
		},
		{
			name: "watchdog bad stats regexp",
			cfg: AppConfig{Menu: []MenuItem{{ID: "w", Widget: WidgetWatchdog, Commands: []string{"x"},
				Stats: []StatSpec{{Label: "E", Regexp: "("}}}}},
			wantErr: "invalid regexp",
		},
		{
			name:    "unknown widget",
			cfg:     AppConfig{Menu: []MenuItem{{ID: "u", Widget: "chart"}}},
			wantErr: "unknown widget 'chart'",
		},
		{
			name:    "auto_enter unknown",
			cfg:     AppConfig{AutoEnter: "nope", Menu: []MenuItem{{ID: "a"}}},
			wantErr: "auto_enter: unknown menu id 'nope'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	err := Validate(AppConfig{Menu: []MenuItem{
		{ID: "m", Widget: WidgetMarkdown},
		{ID: "w", Widget: WidgetWatchdog},
	}})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
	assert.True(t, strings.HasPrefix(err.Error(), "2 problems:"))
}
