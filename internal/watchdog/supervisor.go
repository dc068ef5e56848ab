package watchdog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chitui/internal/process"
	"chitui/pkg/logging"
)

// ErrRestartExternal is returned by Restart in external mode.
var ErrRestartExternal = errors.New("restart is not supported in external mode")

// maxEventsPerPoll bounds how much output one Poll ingests per process so a
// chatty command cannot stall the main loop.
const maxEventsPerPoll = 2000

// Supervisor runs the sections of one watchdog widget. Every method must be
// called from the main loop; process output reaches it only through Poll.
type Supervisor struct {
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	spawner Spawner
	policy  Policy

	sections []*Section
	stats    *Stats
	started  bool
	// halted blocks sequential successors after an explicit stop.
	halted bool

	ext *externalState

	onLine func(section int, line string)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithBufferLines overrides DefaultBufferLines.
func WithBufferLines(n int) Option {
	return func(s *Supervisor) {
		for i, sec := range s.sections {
			s.sections[i] = newSection(sec.index, sec.command, n)
		}
	}
}

// WithLineHook calls fn for every line appended to any section, markers
// included. fn runs on the goroutine that calls Poll.
func WithLineHook(fn func(section int, line string)) Option {
	return func(s *Supervisor) {
		s.onLine = fn
	}
}

// New creates a supervisor for commands. Nothing runs until Start.
func New(ctx context.Context, name string, commands []string, policy Policy, spawner Spawner, opts ...Option) (*Supervisor, error) {
	stats, err := NewStats(policy.Stats)
	if err != nil {
		return nil, err
	}
	if spawner == nil {
		spawner = ProcessSpawner{}
	}
	if policy.External() && policy.ExternalInterval <= 0 {
		policy.ExternalInterval = DefaultExternalInterval
	}
	if len(commands) == 0 {
		if !policy.External() {
			return nil, fmt.Errorf("watchdog %s: no commands", name)
		}
		commands = []string{policy.ExternalCheckCmd}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Supervisor{
		name:    name,
		ctx:     ctx,
		cancel:  cancel,
		spawner: spawner,
		policy:  policy,
		stats:   stats,
	}
	for i, cmd := range commands {
		s.sections = append(s.sections, newSection(i, cmd, DefaultBufferLines))
	}
	if policy.External() {
		s.ext = &externalState{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Supervisor) Name() string         { return s.name }
func (s *Supervisor) Policy() Policy       { return s.policy }
func (s *Supervisor) Sections() []*Section { return s.sections }
func (s *Supervisor) Stats() *Stats        { return s.stats }
func (s *Supervisor) External() bool       { return s.ext != nil }

// Started reports whether Start has been called at least once.
func (s *Supervisor) Started() bool {
	if s.ext != nil {
		return s.ext.started
	}
	return s.started
}

// Section returns section i or nil.
func (s *Supervisor) Section(i int) *Section {
	if i < 0 || i >= len(s.sections) {
		return nil
	}
	return s.sections[i]
}

// Running reports whether any section has a live process or pending retry.
func (s *Supervisor) Running() bool {
	for _, sec := range s.sections {
		if sec.state.Active() {
			return true
		}
	}
	return false
}

// Settled reports whether a started supervisor has nothing left to do
// without operator input. External supervisors never settle.
func (s *Supervisor) Settled() bool {
	if s.ext != nil || !s.started {
		return false
	}
	for _, sec := range s.sections {
		if sec.state.Active() || sec.proc != nil || sec.hook != nil {
			return false
		}
	}
	return true
}

// Start launches sections per policy: all at once in parallel mode, the
// first one in sequential mode. Sections that are not active are reset to
// Idle first, keeping their output.
func (s *Supervisor) Start(now time.Time) {
	if s.ext != nil {
		s.startExternal(now)
		return
	}
	s.started = true
	s.halted = false
	for _, sec := range s.sections {
		if sec.state.Active() {
			continue
		}
		sec.retries = 0
		sec.stopping = false
		sec.setState(StateIdle)
	}
	logging.Info("Watchdog", "%s: starting %d section(s), sequential=%t", s.name, len(s.sections), s.policy.Sequential)

	if s.policy.Sequential {
		for _, sec := range s.sections {
			if sec.state == StateIdle {
				s.launch(sec, now, false)
				return
			}
			if sec.state.Active() {
				return
			}
		}
		return
	}
	for _, sec := range s.sections {
		if sec.state == StateIdle {
			s.launch(sec, now, false)
		}
	}
}

// Stop kills every live owned process and cancels pending retries. In
// external mode it runs the external kill command instead.
func (s *Supervisor) Stop(now time.Time) {
	if s.ext != nil {
		s.killExternal(now)
		return
	}
	s.halted = true
	for _, sec := range s.sections {
		switch sec.state {
		case StateRunning:
			if sec.proc != nil && !sec.stopping {
				sec.stopping = true
				s.appendLine(sec, markerStopRequested)
				sec.proc.Terminate()
			}
		case StateRetrying:
			sec.wakeAt = time.Time{}
			sec.setState(StateStopped)
			s.appendLine(sec, markerStopped)
		}
		if sec.hook != nil {
			sec.hook.Terminate()
		}
	}
	logging.Info("Watchdog", "%s: stop requested", s.name)
}

// Toggle stops a running supervisor and starts an idle one. In external
// mode it invokes the kill command.
func (s *Supervisor) Toggle(now time.Time) {
	if s.ext != nil || s.Running() {
		s.Stop(now)
		return
	}
	s.Start(now)
}

// Restart clears every buffer, retry counter and stat, then starts again.
// Per-section follow preferences survive.
func (s *Supervisor) Restart(now time.Time) error {
	if s.ext != nil {
		for _, sec := range s.sections {
			s.appendLine(sec, markerExtNoRestart)
		}
		return ErrRestartExternal
	}
	for _, sec := range s.sections {
		s.abandon(sec)
		sec.reset()
	}
	s.stats.Reset()
	logging.Info("Watchdog", "%s: restart", s.name)
	s.Start(now)
	return nil
}

// Close terminates everything the supervisor owns.
func (s *Supervisor) Close() {
	for _, sec := range s.sections {
		s.abandon(sec)
	}
	if s.ext != nil {
		s.ext.abandon()
	}
	s.cancel()
}

// abandon kills and forgets a section's processes without waiting for exit.
func (s *Supervisor) abandon(sec *Section) {
	for _, p := range []Proc{sec.proc, sec.hook} {
		if p != nil {
			p.Terminate()
			p.Detach()
		}
	}
	sec.proc = nil
	sec.hook = nil
}

// Poll ingests pending process output and fires due timers. It never
// blocks and reports whether anything changed.
func (s *Supervisor) Poll(now time.Time) bool {
	changed := false
	for _, sec := range s.sections {
		if sec.proc != nil {
			proc := sec.proc
			n, _ := drain(proc, func(ev process.Event) {
				switch ev.Kind {
				case process.Stdout:
					s.appendLine(sec, ev.Line)
				case process.Stderr:
					s.appendLine(sec, stderrPrefix+ev.Line)
				case process.Exited:
					sec.proc = nil
					s.handleExit(sec, ev.Code, now)
				}
			})
			changed = changed || n > 0
		}
		if sec.hook != nil {
			n, _ := drain(sec.hook, func(ev process.Event) {
				switch ev.Kind {
				case process.Stdout:
					s.appendLine(sec, ev.Line)
				case process.Stderr:
					s.appendLine(sec, stderrPrefix+ev.Line)
				case process.Exited:
					sec.hook = nil
					s.appendLine(sec, fmt.Sprintf("[panic hook] exited with %d", ev.Code))
				}
			})
			changed = changed || n > 0
		}
	}

	for _, sec := range s.sections {
		if sec.state == StateRetrying && !now.Before(sec.wakeAt) {
			s.launch(sec, now, true)
			changed = true
		}
	}

	if s.ext != nil && s.pollExternal(now) {
		changed = true
	}
	return changed
}

func drain(p Proc, fn func(process.Event)) (int, bool) {
	n := 0
	for n < maxEventsPerPoll {
		select {
		case ev, ok := <-p.Events():
			if !ok {
				return n, true
			}
			n++
			fn(ev)
			if ev.Kind == process.Exited {
				return n, true
			}
		default:
			return n, false
		}
	}
	return n, false
}

func (s *Supervisor) launch(sec *Section, now time.Time, retry bool) {
	if !retry {
		s.appendEcho(sec, "[start] "+sec.command)
	}
	sec.runs++
	sec.wakeAt = time.Time{}
	sec.setState(StateRunning)

	if strings.TrimSpace(sec.command) == "" {
		s.appendLine(sec, markerEmpty)
		s.handleExit(sec, process.ExitSpawnFailed, now)
		return
	}
	logging.Debug("Watchdog", "%s[%d]: run %d: %s", s.name, sec.index, sec.runs, sec.command)
	sec.proc = s.spawner.Spawn(s.ctx, sec.command)
}

func (s *Supervisor) handleExit(sec *Section, code int, now time.Time) {
	sec.lastExit = code

	if sec.stopping || code == process.ExitKilled {
		sec.stopping = false
		sec.setState(StateStopped)
		s.appendLine(sec, markerStopped)
		return
	}

	if s.policy.Allowed(code) {
		sec.setState(StateSucceeded)
		s.appendLine(sec, markerDone)
		s.advance(sec, now)
		return
	}

	sec.setState(StateFailed)
	if code == process.ExitSpawnFailed {
		s.appendLine(sec, "[failed] command could not be started")
	} else {
		s.appendLine(sec, fmt.Sprintf("[failed] exit code %d", code))
	}

	if s.policy.AutoRestart && sec.retries < s.policy.MaxRetries {
		sec.retries++
		sec.wakeAt = now.Add(s.policy.RestartDelay)
		sec.setState(StateRetrying)
		s.appendLine(sec, fmt.Sprintf("[retry %d/%d in %dms]", sec.retries, s.policy.MaxRetries, s.policy.RestartDelay.Milliseconds()))
		return
	}
	s.exhaust(sec, now)
}

func (s *Supervisor) exhaust(sec *Section, now time.Time) {
	sec.setState(StatePanicked)
	s.appendLine(sec, markerPanic)
	logging.Warn("Watchdog", "%s[%d]: retries exhausted after %d run(s)", s.name, sec.index, sec.runs)

	if hook := s.policy.OnPanicExitCmd; hook != "" && !s.halted {
		s.appendEcho(sec, "[panic hook] running: "+hook)
		sec.hook = s.spawner.Spawn(s.ctx, hook)
	}

	if s.policy.Sequential && s.policy.StopOnFailure {
		for _, next := range s.sections[sec.index+1:] {
			if next.state == StateIdle {
				next.setState(StateAborted)
				s.appendLine(next, markerAborted)
			}
		}
		return
	}
	s.advance(sec, now)
}

// advance starts the sequential successor of a section that reached a
// terminal state.
func (s *Supervisor) advance(sec *Section, now time.Time) {
	if !s.policy.Sequential || s.halted {
		return
	}
	next := sec.index + 1
	if next < len(s.sections) && s.sections[next].state == StateIdle {
		s.launch(s.sections[next], now, false)
	}
}

func (s *Supervisor) appendLine(sec *Section, line string) {
	s.stats.Scan(line)
	s.appendEcho(sec, line)
}

// appendEcho adds a line that repeats a command line. It is not counted
// by stats, so a pattern inside the command is not matched on every start.
func (s *Supervisor) appendEcho(sec *Section, line string) {
	sec.append(line)
	if s.onLine != nil {
		s.onLine(sec.index, line)
	}
}

// Scroll moves section i's view by delta lines (positive is up, towards
// older output) and pauses its auto-follow.
func (s *Supervisor) Scroll(i, delta int) {
	if sec := s.Section(i); sec != nil {
		sec.scroll(delta)
	}
}

// ScrollTop jumps section i to its oldest line and pauses auto-follow.
func (s *Supervisor) ScrollTop(i int) {
	if sec := s.Section(i); sec != nil {
		sec.scrollTop()
	}
}

// Follow resumes auto-follow for section i.
func (s *Supervisor) Follow(i int) {
	if sec := s.Section(i); sec != nil {
		sec.resumeFollow()
	}
}
