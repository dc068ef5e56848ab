package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings are runtime knobs taken from CHI_TUI_* environment variables and
// command-line flags. They are distinct from the screen config in chi-index.yaml.
type Settings struct {
	ConfigDir       string `mapstructure:"config_dir"`
	Headless        bool   `mapstructure:"headless"`
	Ticks           int    `mapstructure:"ticks"`
	HeadlessEnterID string `mapstructure:"headless_enter_id"`
	SmokeSummary    bool   `mapstructure:"smoke_summary"`
	OptionsTTLSec   int    `mapstructure:"options_ttl_sec"`
	TickMs          int    `mapstructure:"tick_ms"`
	Debug           bool   `mapstructure:"debug"`
	AppBin          string `mapstructure:"app_bin"`
}

// DefaultSettings returns the values used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Ticks:         10,
		OptionsTTLSec: 30,
		TickMs:        200,
	}
}

// TickInterval is the main loop tick period.
func (s Settings) TickInterval() time.Duration {
	if s.TickMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(s.TickMs) * time.Millisecond
}

// OptionsTTL is how long command outputs used as options stay cached; zero disables caching.
func (s Settings) OptionsTTL() time.Duration {
	if s.OptionsTTLSec <= 0 {
		return 0
	}
	return time.Duration(s.OptionsTTLSec) * time.Second
}

// Expander returns a variable expander bound to these settings.
func (s Settings) Expander() Expander {
	return Expander{ConfigDir: s.ConfigDir, AppBin: s.AppBin}
}

// SettingsLoader resolves Settings with precedence defaults < env < flags.
type SettingsLoader struct {
	v *viper.Viper
	// err is a binding failure from construction, reported by Load.
	err error
}

// NewSettingsLoader creates a loader with env bindings in place.
func NewSettingsLoader() *SettingsLoader {
	v := viper.New()
	v.SetEnvPrefix("CHI_TUI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	d := DefaultSettings()
	v.SetDefault("config_dir", d.ConfigDir)
	v.SetDefault("headless", d.Headless)
	v.SetDefault("ticks", d.Ticks)
	v.SetDefault("headless_enter_id", d.HeadlessEnterID)
	v.SetDefault("smoke_summary", d.SmokeSummary)
	v.SetDefault("options_ttl_sec", d.OptionsTTLSec)
	v.SetDefault("tick_ms", d.TickMs)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("app_bin", d.AppBin)

	l := &SettingsLoader{v: v}
	// CHI_APP_BIN predates the CHI_TUI_ prefix.
	if err := v.BindEnv("app_bin", EnvAppBin); err != nil {
		l.err = fmt.Errorf("failed to bind %s: %w", EnvAppBin, err)
	}
	v.AutomaticEnv()

	return l
}

// BindFlags lets explicitly set flags override the environment. Flag names
// use dashes; they map onto the underscore keys.
func (l *SettingsLoader) BindFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := l.v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("binding flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// Load resolves the settings.
func (l *SettingsLoader) Load() (Settings, error) {
	if l.err != nil {
		return Settings{}, l.err
	}
	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if s.Ticks < 0 {
		return Settings{}, fmt.Errorf("ticks must not be negative, got %d", s.Ticks)
	}
	return s, nil
}
