package watchdog

import (
	"context"
	"slices"
	"time"

	"chitui/internal/config"
)

// DefaultExternalInterval is how often the external check command runs.
const DefaultExternalInterval = time.Second

// Policy controls how a supervisor runs its sections.
type Policy struct {
	Sequential    bool
	AutoRestart   bool
	MaxRetries    int
	RestartDelay  time.Duration
	StopOnFailure bool
	// AllowedExitCodes are treated as success. Nil means {0}; an empty
	// non-nil slice accepts every exit code.
	AllowedExitCodes []int
	OnPanicExitCmd   string
	ExternalCheckCmd string
	ExternalKillCmd  string
	ExternalInterval time.Duration
	Stats            []StatPattern
}

// External reports whether the supervisor observes rather than owns
// processes. A check command alone selects external mode.
func (p Policy) External() bool {
	return p.ExternalCheckCmd != ""
}

// Allowed reports whether code counts as success. The process sentinels
// for spawn failure and operator kill are never successes.
func (p Policy) Allowed(code int) bool {
	if code < 0 {
		return false
	}
	if p.AllowedExitCodes == nil {
		return code == 0
	}
	if len(p.AllowedExitCodes) == 0 {
		return true
	}
	return slices.Contains(p.AllowedExitCodes, code)
}

// PolicyFromItem builds a policy from a watchdog menu item. Commands in the
// item are expected to be expanded by the caller.
func PolicyFromItem(item config.MenuItem, expand func(string) string) Policy {
	if expand == nil {
		expand = func(s string) string { return s }
	}
	p := Policy{
		Sequential:       item.Sequential,
		AutoRestart:      item.AutoRestart,
		MaxRetries:       item.MaxRetries,
		RestartDelay:     item.RestartDelay(),
		StopOnFailure:    item.StopOnFailure,
		AllowedExitCodes: item.AllowedExitCodes,
		ExternalInterval: DefaultExternalInterval,
	}
	if item.OnPanicExitCmd != "" {
		p.OnPanicExitCmd = expand(item.OnPanicExitCmd)
	}
	if item.ExternalCheckCmd != "" {
		p.ExternalCheckCmd = expand(item.ExternalCheckCmd)
	}
	if item.ExternalKillCmd != "" {
		p.ExternalKillCmd = expand(item.ExternalKillCmd)
	}
	for _, s := range item.Stats {
		p.Stats = append(p.Stats, StatPattern{Label: s.Label, Regexp: s.Regexp})
	}
	return p
}

// FromItem builds a supervisor for a watchdog menu item, expanding its
// commands with expand.
func FromItem(ctx context.Context, item config.MenuItem, spawner Spawner, expand func(string) string, opts ...Option) (*Supervisor, error) {
	if expand == nil {
		expand = func(s string) string { return s }
	}
	commands := make([]string, 0, len(item.Commands))
	for _, c := range item.Commands {
		commands = append(commands, expand(c))
	}
	name := item.ID
	if name == "" {
		name = item.Title
	}
	return New(ctx, name, commands, PolicyFromItem(item, expand), spawner, opts...)
}
