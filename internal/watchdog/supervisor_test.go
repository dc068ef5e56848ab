package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chitui/internal/process"
)

type fakeProc struct {
	command    string
	events     chan process.Event
	terminated bool
	detached   bool
}

func (p *fakeProc) Events() <-chan process.Event { return p.events }

// Terminate behaves like a process group kill.
func (p *fakeProc) Terminate() {
	if p.terminated {
		return
	}
	p.terminated = true
	p.events <- process.Event{Kind: process.Exited, Code: process.ExitKilled}
	close(p.events)
}

func (p *fakeProc) Detach() { p.detached = true }

func (p *fakeProc) out(lines ...string) {
	for _, l := range lines {
		p.events <- process.Event{Kind: process.Stdout, Line: l}
	}
}

func (p *fakeProc) exit(code int) {
	p.terminated = true
	p.events <- process.Event{Kind: process.Exited, Code: code}
	close(p.events)
}

type fakeSpawner struct {
	mock.Mock
	procs []*fakeProc
}

func newFakeSpawner() *fakeSpawner {
	s := &fakeSpawner{}
	s.On("Spawn", mock.Anything).Return()
	return s
}

func (s *fakeSpawner) Spawn(_ context.Context, command string) Proc {
	s.Called(command)
	p := &fakeProc{command: command, events: make(chan process.Event, 64)}
	s.procs = append(s.procs, p)
	return p
}

func (s *fakeSpawner) last() *fakeProc { return s.procs[len(s.procs)-1] }

func newSupervisor(t *testing.T, commands []string, policy Policy) (*Supervisor, *fakeSpawner) {
	t.Helper()
	sp := newFakeSpawner()
	sup, err := New(context.Background(), "test", commands, policy, sp)
	require.NoError(t, err)
	t.Cleanup(sup.Close)
	return sup, sp
}

func TestSupervisor_RetryThenPanic(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"flaky"}, Policy{
		AutoRestart:    true,
		MaxRetries:     2,
		RestartDelay:   100 * time.Millisecond,
		OnPanicExitCmd: "notify",
	})
	t0 := time.Unix(1000, 0)
	sec := sup.Section(0)

	sup.Start(t0)
	require.Len(t, sp.procs, 1)
	sp.last().exit(1)
	assert.True(t, sup.Poll(t0))
	assert.Equal(t, StateRetrying, sec.State())

	// Not due yet.
	assert.False(t, sup.Poll(t0.Add(50*time.Millisecond)))
	assert.Len(t, sp.procs, 1)

	sup.Poll(t0.Add(100 * time.Millisecond))
	require.Len(t, sp.procs, 2)
	sp.last().exit(1)
	sup.Poll(t0.Add(150 * time.Millisecond))
	assert.Equal(t, StateRetrying, sec.State())

	sup.Poll(t0.Add(250 * time.Millisecond))
	require.Len(t, sp.procs, 3)
	sp.last().exit(1)
	sup.Poll(t0.Add(300 * time.Millisecond))

	assert.Equal(t, StatePanicked, sec.State())
	assert.Equal(t, 3, sec.Runs())
	assert.Equal(t, 2, sec.Retries())
	assert.Equal(t, []State{
		StateIdle,
		StateRunning, StateFailed, StateRetrying,
		StateRunning, StateFailed, StateRetrying,
		StateRunning, StateFailed, StatePanicked,
	}, sec.History())

	sp.AssertNumberOfCalls(t, "Spawn", 4)
	sp.AssertCalled(t, "Spawn", "notify")
	assert.Contains(t, sec.Lines(), markerPanic)
	assert.Contains(t, sec.Lines(), "[panic hook] running: notify")

	sp.last().out("paged")
	sp.last().exit(0)
	sup.Poll(t0.Add(time.Second))
	assert.Contains(t, sec.Lines(), "paged")
	assert.Contains(t, sec.Lines(), "[panic hook] exited with 0")
	assert.False(t, sec.HookRunning())

	// The hook runs once per panic, never again while idle.
	sup.Poll(t0.Add(10 * time.Second))
	sp.AssertNumberOfCalls(t, "Spawn", 4)
}

func TestSupervisor_NoAutoRestartPanicsOnFirstFailure(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"x"}, Policy{MaxRetries: 5})
	t0 := time.Now()
	sup.Start(t0)
	sp.last().exit(2)
	sup.Poll(t0)

	sec := sup.Section(0)
	assert.Equal(t, StatePanicked, sec.State())
	assert.Equal(t, 2, sec.LastExit())
	assert.Contains(t, sec.Lines(), "[failed] exit code 2")
}

func TestSupervisor_AllowedExitCodes(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a", "b"}, Policy{AllowedExitCodes: []int{0, 3}})
	t0 := time.Now()
	sup.Start(t0)
	sp.procs[0].exit(3)
	sp.procs[1].exit(1)
	sup.Poll(t0)

	assert.Equal(t, StateSucceeded, sup.Section(0).State())
	assert.Contains(t, sup.Section(0).Lines(), markerDone)
	assert.Equal(t, StatePanicked, sup.Section(1).State())
}

func TestSupervisor_SequentialAdvances(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a", "b", "c"}, Policy{Sequential: true})
	t0 := time.Now()
	sup.Start(t0)
	sp.AssertNumberOfCalls(t, "Spawn", 1)
	assert.Equal(t, StateIdle, sup.Section(1).State())

	sp.last().exit(0)
	sup.Poll(t0)
	sp.AssertNumberOfCalls(t, "Spawn", 2)
	assert.Equal(t, "b", sp.last().command)

	// A panic without stop_on_failure still moves on.
	sp.last().exit(1)
	sup.Poll(t0)
	assert.Equal(t, StatePanicked, sup.Section(1).State())
	assert.Equal(t, "c", sp.last().command)
	assert.Equal(t, StateRunning, sup.Section(2).State())
}

func TestSupervisor_SequentialStopOnFailure(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a", "b", "c"}, Policy{Sequential: true, StopOnFailure: true})
	t0 := time.Now()
	sup.Start(t0)
	sp.last().exit(1)
	sup.Poll(t0)

	assert.Equal(t, StatePanicked, sup.Section(0).State())
	for _, i := range []int{1, 2} {
		sec := sup.Section(i)
		assert.Equal(t, StateAborted, sec.State())
		assert.Contains(t, sec.Lines(), markerAborted)
		assert.Zero(t, sec.Runs())
	}
	sp.AssertNumberOfCalls(t, "Spawn", 1)
	sp.AssertNotCalled(t, "Spawn", "b")
	sp.AssertNotCalled(t, "Spawn", "c")
}

func TestSupervisor_StatsAcrossSections(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a", "b"}, Policy{
		Stats: []StatPattern{{Label: "errors", Regexp: `ERR`}, {Label: "warn", Regexp: `WARN`}},
	})
	t0 := time.Now()
	sup.Start(t0)
	sp.procs[0].out("ERR one", "fine")
	sp.procs[1].out("ERR ERR two")
	sup.Poll(t0)

	assert.Equal(t, 3, sup.Stats().Count("errors"))
	assert.Equal(t, 0, sup.Stats().Count("warn"))
	assert.Equal(t, []StatCount{{Label: "errors", Count: 3}, {Label: "warn", Count: 0}}, sup.Stats().Counts())
}

func TestSupervisor_StatsIgnoreCommandEcho(t *testing.T) {
	sup, sp := newSupervisor(t, []string{
		`printf 'ERROR a\nok\nERROR b\n'`,
		`printf 'ok\nERROR c\n'`,
	}, Policy{
		Stats:          []StatPattern{{Label: "errors", Regexp: `ERROR`}},
		OnPanicExitCmd: "echo ERROR hook",
	})
	t0 := time.Now()
	sup.Start(t0)
	sp.procs[0].out("ERROR a", "ok", "ERROR b")
	sp.procs[1].out("ok", "ERROR c")
	sp.procs[0].exit(0)
	sp.procs[1].exit(0)
	sup.Poll(t0)

	assert.Equal(t, 3, sup.Stats().Count("errors"))
	assert.Contains(t, sup.Section(0).Lines(), "[start] printf 'ERROR a\\nok\\nERROR b\\n'")

	require.NoError(t, sup.Restart(t0))
	sup.Poll(t0)
	assert.Equal(t, 0, sup.Stats().Count("errors"))

	// Panic markers and hook output still count; the hook echo does not.
	sp.procs[2].exit(1)
	sup.Poll(t0)
	require.Equal(t, StatePanicked, sup.Section(0).State())
	assert.Contains(t, sup.Section(0).Lines(), "[panic hook] running: echo ERROR hook")
	assert.Equal(t, 0, sup.Stats().Count("errors"))
	sp.last().out("ERROR hook")
	sup.Poll(t0)
	assert.Equal(t, 1, sup.Stats().Count("errors"))
}

func TestSupervisor_InvalidStatsPattern(t *testing.T) {
	_, err := New(context.Background(), "x", []string{"a"}, Policy{
		Stats: []StatPattern{{Label: "bad", Regexp: `(`}},
	}, newFakeSpawner())
	assert.Error(t, err)
}

func TestSupervisor_StderrPrefixed(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a"}, Policy{})
	sup.Start(time.Now())
	sp.last().events <- process.Event{Kind: process.Stderr, Line: "boom"}
	sup.Poll(time.Now())
	assert.Contains(t, sup.Section(0).Lines(), "[stderr] boom")
}

func TestSupervisor_StopDoesNotRetry(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a"}, Policy{AutoRestart: true, MaxRetries: 5})
	t0 := time.Now()
	sup.Start(t0)
	require.True(t, sup.Running())

	sup.Stop(t0)
	assert.True(t, sp.last().terminated)
	sup.Poll(t0)

	sec := sup.Section(0)
	assert.Equal(t, StateStopped, sec.State())
	assert.Equal(t, process.ExitKilled, sec.LastExit())
	assert.Contains(t, sec.Lines(), markerStopRequested)
	assert.Contains(t, sec.Lines(), markerStopped)
	assert.False(t, sup.Running())

	sup.Poll(t0.Add(time.Minute))
	sp.AssertNumberOfCalls(t, "Spawn", 1)
}

func TestSupervisor_StopDuringRetryWait(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a"}, Policy{AutoRestart: true, MaxRetries: 5, RestartDelay: time.Second})
	t0 := time.Now()
	sup.Start(t0)
	sp.last().exit(1)
	sup.Poll(t0)
	require.Equal(t, StateRetrying, sup.Section(0).State())

	sup.Stop(t0)
	assert.Equal(t, StateStopped, sup.Section(0).State())
	sup.Poll(t0.Add(5 * time.Second))
	sp.AssertNumberOfCalls(t, "Spawn", 1)
}

func TestSupervisor_ToggleStartsAgainAfterStop(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a"}, Policy{})
	t0 := time.Now()
	sup.Toggle(t0)
	sp.AssertNumberOfCalls(t, "Spawn", 1)
	sup.Toggle(t0)
	sup.Poll(t0)
	require.Equal(t, StateStopped, sup.Section(0).State())

	sup.Toggle(t0)
	sp.AssertNumberOfCalls(t, "Spawn", 2)
	assert.Equal(t, StateRunning, sup.Section(0).State())
}

func TestSupervisor_RestartClearsState(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a"}, Policy{
		Stats: []StatPattern{{Label: "hits", Regexp: `hit`}},
	})
	t0 := time.Now()
	sup.Start(t0)
	first := sp.last()
	first.out("hit", "hit", "miss")
	sup.Poll(t0)
	sup.Scroll(0, 1)
	require.False(t, sup.Section(0).Following())
	require.Equal(t, 2, sup.Stats().Count("hits"))

	require.NoError(t, sup.Restart(t0))

	sec := sup.Section(0)
	assert.True(t, first.terminated)
	assert.True(t, first.detached)
	assert.Equal(t, []string{"[start] a"}, sec.Lines())
	assert.Equal(t, 0, sup.Stats().Count("hits"))
	assert.False(t, sec.Following())
	assert.Equal(t, StateRunning, sec.State())
	assert.Equal(t, 1, sec.Runs())
	sp.AssertNumberOfCalls(t, "Spawn", 2)

	// The abandoned process's kill is never observed.
	sup.Poll(t0)
	assert.Equal(t, StateRunning, sec.State())
}

func TestSupervisor_EmptyCommand(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"  "}, Policy{})
	sup.Start(time.Now())

	sec := sup.Section(0)
	assert.Equal(t, StatePanicked, sec.State())
	assert.Contains(t, sec.Lines(), markerEmpty)
	sp.AssertNotCalled(t, "Spawn", mock.Anything)
}

func TestSupervisor_NoCommands(t *testing.T) {
	_, err := New(context.Background(), "x", nil, Policy{}, newFakeSpawner())
	assert.Error(t, err)
}

func TestSupervisor_External(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"server"}, Policy{
		ExternalCheckCmd: "check",
		ExternalKillCmd:  "kill-it",
	})
	require.True(t, sup.External())
	t0 := time.Unix(2000, 0)
	sec := sup.Section(0)

	sup.Start(t0)
	assert.Contains(t, sec.Lines(), markerExternalMode)
	assert.Equal(t, "checking", sup.ExternalStatus())
	assert.Equal(t, StateIdle, sec.State())

	sup.Poll(t0)
	require.Len(t, sp.procs, 1)
	assert.Equal(t, "check", sp.last().command)

	sp.last().exit(0)
	assert.True(t, sup.Poll(t0))
	assert.Equal(t, "running", sup.ExternalStatus())
	assert.Equal(t, StateExternalRunning, sec.State())
	assert.Equal(t, []State{StateIdle, StateExternalRunning}, sec.History())
	assert.Contains(t, sec.Lines(), markerExtRunning)

	// Next check waits for the interval.
	sup.Poll(t0.Add(500 * time.Millisecond))
	assert.Len(t, sp.procs, 1)
	sup.Poll(t0.Add(time.Second))
	require.Len(t, sp.procs, 2)

	// Same status again adds no note.
	before := sec.Len()
	sp.last().exit(0)
	sup.Poll(t0.Add(time.Second))
	assert.Equal(t, before, sec.Len())

	sup.Poll(t0.Add(2 * time.Second))
	sp.last().exit(1)
	sup.Poll(t0.Add(2 * time.Second))
	assert.Equal(t, "not running", sup.ExternalStatus())
	assert.Equal(t, StateExternalStopped, sec.State())
	assert.Contains(t, sec.Lines(), markerExtStopped)

	sp.AssertNotCalled(t, "Spawn", "server")

	assert.ErrorIs(t, sup.Restart(t0), ErrRestartExternal)
	assert.Contains(t, sec.Lines(), markerExtNoRestart)
}

func TestSupervisor_ExternalKill(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"server"}, Policy{
		ExternalCheckCmd: "check",
		ExternalKillCmd:  "kill-it",
	})
	t0 := time.Now()
	sup.Start(t0)
	sup.Toggle(t0)

	sp.AssertCalled(t, "Spawn", "kill-it")
	assert.Contains(t, sup.Section(0).Lines(), markerExtKill)
	sp.AssertNotCalled(t, "Spawn", "server")
}

func TestSupervisor_ExternalWithoutKill(t *testing.T) {
	sup, _ := newSupervisor(t, nil, Policy{ExternalCheckCmd: "check"})
	sup.Start(time.Now())
	sup.Stop(time.Now())
	assert.Equal(t, "check", sup.Section(0).Command())
	assert.Contains(t, sup.Section(0).Lines(), markerExtNoKill)
}

func TestSection_PausedViewStaysAnchored(t *testing.T) {
	sup, sp := newSupervisor(t, []string{"a"}, Policy{})
	t0 := time.Now()
	sup.Start(t0)
	sp.last().out("1", "2", "3", "4")
	sup.Poll(t0)
	sec := sup.Section(0)

	assert.Equal(t, []string{"3", "4"}, sec.Window(2))

	sup.Scroll(0, 1)
	assert.Equal(t, []string{"2", "3"}, sec.Window(2))

	sp.last().out("5", "6")
	sup.Poll(t0)
	assert.Equal(t, []string{"2", "3"}, sec.Window(2))

	sup.Follow(0)
	assert.Equal(t, []string{"5", "6"}, sec.Window(2))

	sup.ScrollTop(0)
	assert.Equal(t, []string{"[start] a"}, sec.Window(2))
}

func TestSection_BufferBounded(t *testing.T) {
	sp := newFakeSpawner()
	sup, err := New(context.Background(), "x", []string{"a"}, Policy{}, sp, WithBufferLines(3))
	require.NoError(t, err)
	defer sup.Close()

	sup.Start(time.Now())
	sp.last().out("1", "2", "3", "4")
	sup.Poll(time.Now())
	assert.Equal(t, []string{"2", "3", "4"}, sup.Section(0).Lines())
}

func TestSupervisor_LineHookAndSettled(t *testing.T) {
	type line struct {
		section int
		text    string
	}
	var seen []line
	sp := newFakeSpawner()
	sup, err := New(context.Background(), "hooked", []string{"a", "b"}, Policy{}, sp,
		WithLineHook(func(section int, text string) {
			seen = append(seen, line{section, text})
		}))
	require.NoError(t, err)
	t.Cleanup(sup.Close)
	assert.False(t, sup.Settled())

	t0 := time.Now()
	sup.Start(t0)
	assert.Contains(t, seen, line{0, "[start] a"})
	assert.Contains(t, seen, line{1, "[start] b"})

	sp.procs[0].out("hello")
	sp.procs[0].exit(0)
	sup.Poll(t0)
	assert.Contains(t, seen, line{0, "hello"})
	assert.False(t, sup.Settled())

	sp.procs[1].exit(0)
	sup.Poll(t0)
	assert.True(t, sup.Settled())
}
