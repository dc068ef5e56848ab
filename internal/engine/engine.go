package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"

	"chitui/internal/config"
	"chitui/internal/effects"
	"chitui/internal/panes"
	"chitui/internal/tui/design"
	"chitui/internal/watchdog"
	"chitui/pkg/logging"
)

// Options configure an Engine. Only Config is required.
type Options struct {
	Config   config.AppConfig
	Settings config.Settings

	// Scheduler runs effects; one is created (and closed with the engine)
	// when nil.
	Scheduler *effects.Scheduler
	// Spawner starts watchdog processes; a ProcessSpawner when nil.
	Spawner watchdog.Spawner
	// Clipboard receives copied text; the system clipboard when nil.
	Clipboard func(string) error
	// Load reads another screen config for tabs and reloads.
	Load func(path string) (config.AppConfig, error)
	Now  func() time.Time
}

// Engine is the main loop state. Every mutation of panes and supervisors
// happens inside Tick, on the caller's goroutine.
type Engine struct {
	ctx  context.Context
	opts Options

	base      config.AppConfig
	cfg       config.AppConfig
	configDir string
	expander  config.Expander

	sched    *effects.Scheduler
	ownSched bool
	resolver panes.DefaultResolver

	screens []*Screen
	seq     int

	width, height int
	activeTab     int
	toasts        []Toast
	progress      string
	spinner       string
	debug         bool
	logs          []logging.LogEntry
	help          bool
	quit          bool

	progressSeen  bool
	statusSeen    bool
	resultPresent bool
	enterDone     bool
	enterErr      error
}

// New creates an engine showing the root screen of opts.Config.
func New(ctx context.Context, opts Options) *Engine {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Load == nil {
		opts.Load = config.LoadFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	configDir := opts.Settings.ConfigDir
	if configDir == "" && opts.Config.Source != "" {
		configDir = filepath.Dir(opts.Config.Source)
	}
	expander := opts.Settings.Expander()
	expander.ConfigDir = configDir

	e := &Engine{
		ctx:       ctx,
		opts:      opts,
		base:      opts.Config,
		configDir: configDir,
		expander:  expander,
		sched:     opts.Scheduler,
		activeTab: -1,
		width:     80,
		height:    24,
	}
	if e.sched == nil {
		e.sched = effects.NewScheduler(ctx,
			effects.WithBaseDir(configDir),
			effects.WithCacheTTL(opts.Settings.OptionsTTL()),
		)
		e.ownSched = true
	}
	e.resolver = panes.DefaultResolver{
		BaseDir:     configDir,
		InlineLimit: effects.DefaultInlineLimit,
		Expander:    expander,
		Context:     ctx,
		Spawner:     opts.Spawner,
		Now:         opts.Now,
	}

	e.setRoot(opts.Config)
	return e
}

func (e *Engine) now() time.Time { return e.opts.Now() }

// Tick is one pass of the main loop: terminal inputs first, then finished
// effects, then watchdog output and due timers. It never blocks and
// reports whether anything visible changed.
func (e *Engine) Tick(inputs []Input) bool {
	now := e.now()
	dirty := false

	for _, in := range inputs {
		if e.handleInput(in, now) {
			dirty = true
		}
	}
	for _, out := range e.sched.Poll() {
		if e.applyOutcome(out) {
			dirty = true
		}
	}
	for _, sup := range e.Supervisors() {
		if sup.Poll(now) {
			dirty = true
		}
	}
	if e.expireToasts(now) {
		dirty = true
	}
	return dirty
}

func (e *Engine) handleInput(in Input, now time.Time) bool {
	switch in := in.(type) {
	case KeyInput:
		return e.handleKey(in.Msg, now)
	case ResizeInput:
		e.width, e.height = in.Width, in.Height
		return true
	case EnterInput:
		return e.enter(in.ID)
	case ReloadInput:
		return e.reload(in.Path)
	case LogInput:
		e.logs = append(e.logs, in.Entry)
		if n := len(e.logs) - design.DebugLogLines; n > 0 {
			e.logs = append(e.logs[:0], e.logs[n:]...)
		}
		return e.debug
	}
	return false
}

func (e *Engine) applyOutcome(out effects.Outcome) bool {
	for _, s := range e.screens {
		if _, ok := s.Tree.LeafFor(out.Target); !ok {
			continue
		}
		reqs, applied := s.Tree.Apply(out)
		if !applied {
			return false
		}
		e.submit(s.Tree, reqs)
		if out.Interim() {
			e.progress = progressText(out.Progress)
			e.progressSeen = true
			e.statusSeen = true
			return true
		}
		e.progress = ""
		e.resultPresent = true
		return true
	}
	logging.Debug("Engine", "no live leaf for %s", out.Target)
	return false
}

func (e *Engine) submit(tree *panes.Tree, reqs []effects.Request) {
	for _, req := range reqs {
		gen := e.sched.Submit(req)
		tree.Track(req.Target, gen)
	}
}

// Supervisors returns every watchdog on the screen stack, including
// screens that are not visible.
func (e *Engine) Supervisors() []*watchdog.Supervisor {
	var out []*watchdog.Supervisor
	for _, s := range e.screens {
		for _, p := range s.Tree.Leaves() {
			if sup := panes.Supervisor(p.Content); sup != nil {
				out = append(out, sup)
			}
		}
	}
	return out
}

// Scheduler exposes the effect scheduler so drivers can wait on Wake.
func (e *Engine) Scheduler() *effects.Scheduler { return e.sched }

func (e *Engine) Config() config.AppConfig { return e.cfg }
func (e *Engine) Screens() []*Screen       { return e.screens }
func (e *Engine) Quitting() bool           { return e.quit }
func (e *Engine) DebugVisible() bool       { return e.debug }
func (e *Engine) HelpVisible() bool        { return e.help }

// SetSpinner sets the frame shown next to loading panes.
func (e *Engine) SetSpinner(frame string) { e.spinner = frame }

// Loading reports whether any visible leaf waits for an outcome.
func (e *Engine) Loading() bool {
	for _, p := range e.Top().Tree.Leaves() {
		if p.Status == panes.StatusLoading {
			return true
		}
	}
	return false
}

// Close tears down every screen and, if the engine created it, the scheduler.
func (e *Engine) Close() {
	for _, s := range e.screens {
		e.closeScreen(s)
	}
	e.screens = nil
	if e.ownSched {
		e.sched.Close()
	}
}
