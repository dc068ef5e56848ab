package watchdog

import (
	"fmt"
	"time"

	"chitui/internal/process"
	"chitui/pkg/logging"
)

// externalState tracks a process the supervisor observes but does not own.
type externalState struct {
	started   bool
	known     bool
	running   bool
	nextCheck time.Time
	check     Proc
	killer    Proc
}

func (e *externalState) abandon() {
	for _, p := range []Proc{e.check, e.killer} {
		if p != nil {
			p.Terminate()
			p.Detach()
		}
	}
	e.check = nil
	e.killer = nil
}

// ExternalStatus describes the observed process: "checking" until the first
// check completes, then "running" or "not running". Empty outside external
// mode.
func (s *Supervisor) ExternalStatus() string {
	switch {
	case s.ext == nil:
		return ""
	case !s.ext.known:
		return "checking"
	case s.ext.running:
		return "running"
	default:
		return "not running"
	}
}

func (s *Supervisor) startExternal(now time.Time) {
	if s.ext.started {
		return
	}
	s.ext.started = true
	s.ext.nextCheck = now
	// Sections stay Idle until the first check reports.
	for _, sec := range s.sections {
		s.appendEcho(sec, "[start] "+sec.command)
		s.appendLine(sec, markerExternalMode)
	}
	logging.Info("Watchdog", "%s: external mode, checking with %q", s.name, s.policy.ExternalCheckCmd)
}

func (s *Supervisor) killExternal(now time.Time) {
	if s.policy.ExternalKillCmd == "" {
		for _, sec := range s.sections {
			s.appendLine(sec, markerExtNoKill)
		}
		return
	}
	if s.ext.killer != nil {
		return
	}
	for _, sec := range s.sections {
		s.appendLine(sec, markerExtKill)
	}
	logging.Info("Watchdog", "%s: running external kill command", s.name)
	s.ext.killer = s.spawner.Spawn(s.ctx, s.policy.ExternalKillCmd)
}

// pollExternal collects check and kill results and schedules the next
// check. Status notes are appended only when the observed state changes.
func (s *Supervisor) pollExternal(now time.Time) bool {
	e := s.ext
	if !e.started {
		return false
	}
	changed := false

	if e.killer != nil {
		drain(e.killer, func(ev process.Event) {
			switch ev.Kind {
			case process.Stdout:
				s.appendLine(s.sections[0], ev.Line)
			case process.Stderr:
				s.appendLine(s.sections[0], stderrPrefix+ev.Line)
			case process.Exited:
				e.killer = nil
				s.appendLine(s.sections[0], fmt.Sprintf("[external] kill exited with %d", ev.Code))
				// Re-check promptly so the status reflects the kill.
				if e.check == nil {
					e.nextCheck = now
				}
			}
			changed = true
		})
	}

	if e.check != nil {
		drain(e.check, func(ev process.Event) {
			if ev.Kind != process.Exited {
				return
			}
			e.check = nil
			e.nextCheck = now.Add(s.policy.ExternalInterval)
			running := ev.Code == 0
			if e.known && running == e.running {
				return
			}
			e.known = true
			e.running = running
			marker, state := markerExtStopped, StateExternalStopped
			if running {
				marker, state = markerExtRunning, StateExternalRunning
			}
			for _, sec := range s.sections {
				sec.setState(state)
				s.appendLine(sec, marker)
			}
			changed = true
		})
	}

	if e.check == nil && !now.Before(e.nextCheck) {
		e.check = s.spawner.Spawn(s.ctx, s.policy.ExternalCheckCmd)
	}
	return changed
}
