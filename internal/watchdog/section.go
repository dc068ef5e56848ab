package watchdog

import (
	"time"
)

const maxHistory = 256

// Section is one supervised command slot. Its fields are mutated only by
// the owning Supervisor; views read it through the accessors.
type Section struct {
	index   int
	command string

	state    State
	retries  int
	runs     int
	lastExit int
	history  []State

	buffer *Ring
	proc   Proc
	hook   Proc
	wakeAt time.Time
	// stopping marks a kill requested by Stop so the exit is not a failure.
	stopping bool

	// View state: lines between the newest line and the bottom of the view.
	follow bool
	offset int
}

func newSection(index int, command string, capacity int) *Section {
	return &Section{
		index:   index,
		command: command,
		state:   StateIdle,
		buffer:  NewRing(capacity),
		follow:  true,
		history: []State{StateIdle},
	}
}

func (s *Section) Index() int        { return s.index }
func (s *Section) Command() string   { return s.command }
func (s *Section) State() State      { return s.state }
func (s *Section) Retries() int      { return s.retries }
func (s *Section) Runs() int         { return s.runs }
func (s *Section) LastExit() int     { return s.lastExit }
func (s *Section) Len() int          { return s.buffer.Len() }
func (s *Section) Lines() []string   { return s.buffer.Lines() }
func (s *Section) Following() bool   { return s.follow }
func (s *Section) Offset() int       { return s.offset }
func (s *Section) HookRunning() bool { return s.hook != nil }

// History lists the states the section passed through, oldest first.
func (s *Section) History() []State {
	out := make([]State, len(s.history))
	copy(out, s.history)
	return out
}

// Window returns the lines visible in a view of the given height.
func (s *Section) Window(height int) []string {
	n := s.buffer.Len()
	if height <= 0 || n == 0 {
		return nil
	}
	end := n - s.offset
	if end < 1 {
		end = 1
	}
	start := end - height
	if start < 0 {
		start = 0
	}
	return s.buffer.Slice(start, end)
}

func (s *Section) setState(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.history = append(s.history, st)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

// append stores a line; a paused view stays anchored on the same content.
func (s *Section) append(line string) {
	s.buffer.Push(line)
	if !s.follow {
		s.offset++
	}
	s.clampOffset()
}

func (s *Section) clampOffset() {
	maxOffset := s.buffer.Len() - 1
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.offset > maxOffset {
		s.offset = maxOffset
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

func (s *Section) scroll(delta int) {
	s.follow = false
	s.offset += delta
	s.clampOffset()
}

func (s *Section) scrollTop() {
	s.follow = false
	s.offset = s.buffer.Len() - 1
	s.clampOffset()
}

func (s *Section) resumeFollow() {
	s.follow = true
	s.offset = 0
}

// reset clears run state and output, keeping the follow preference.
func (s *Section) reset() {
	s.buffer.Clear()
	s.offset = 0
	s.retries = 0
	s.runs = 0
	s.lastExit = 0
	s.stopping = false
	s.wakeAt = time.Time{}
	s.state = StateIdle
	s.history = []State{StateIdle}
}
