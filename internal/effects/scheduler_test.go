package effects

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"chitui/internal/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner returns canned results; commands listed in gates block until released.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]process.Result
	lines   map[string][]process.Event
	gates   map[string]chan struct{}
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: make(map[string]process.Result),
		lines:   make(map[string][]process.Event),
		gates:   make(map[string]chan struct{}),
	}
}

func (f *fakeRunner) gate(cmd string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[cmd] = ch
	return ch
}

func (f *fakeRunner) Run(ctx context.Context, command string, onLine func(process.Event)) process.Result {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	gate := f.gates[command]
	res := f.results[command]
	lines := f.lines[command]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return process.Result{Code: process.ExitKilled}
		}
	}
	for _, ev := range lines {
		if onLine != nil {
			onLine(ev)
		}
	}
	return res
}

func (f *fakeRunner) callCount(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == cmd {
			n++
		}
	}
	return n
}

// pollUntil polls until n outcomes arrived or the deadline passes.
func pollUntil(t *testing.T, s *Scheduler, n int) []Outcome {
	t.Helper()
	var got []Outcome
	deadline := time.Now().Add(3 * time.Second)
	for len(got) < n && time.Now().Before(deadline) {
		got = append(got, s.Poll()...)
		if len(got) < n {
			time.Sleep(5 * time.Millisecond)
		}
	}
	return got
}

func TestScheduler_RunCommandDeliversParsedJSON(t *testing.T) {
	r := newFakeRunner()
	r.results["status"] = process.Result{Stdout: []string{`{"ok":true,"data":{"n":1}}`}}
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	gen := s.Submit(RunCommand("pane-b", "status"))
	assert.Equal(t, uint64(1), gen)

	got := pollUntil(t, s, 1)
	require.Len(t, got, 1)
	out := got[0]
	assert.Equal(t, Target("pane-b"), out.Target)
	assert.Equal(t, gen, out.Generation)
	assert.Equal(t, "json", out.Format)
	assert.NoError(t, out.Err)

	env, ok := ParseEnvelope(out.Value)
	require.True(t, ok)
	assert.True(t, env.OK)
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, env.Data)
}

func TestScheduler_NonZeroExitIsFailureOutcome(t *testing.T) {
	r := newFakeRunner()
	r.results["broken"] = process.Result{Stderr: []string{"nope"}, Code: 2}
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	s.Submit(RunCommand("t", "broken"))
	got := pollUntil(t, s, 1)
	require.Len(t, got, 1)

	var cmdErr *CommandError
	require.True(t, errors.As(got[0].Err, &cmdErr))
	assert.Equal(t, 2, cmdErr.Code)
	assert.Equal(t, "command failed: broken\nnope", got[0].Err.Error())
}

func TestScheduler_StaleOutcomeAfterResubmitIsDropped(t *testing.T) {
	r := newFakeRunner()
	r.results["slow"] = process.Result{Stdout: []string{"old"}}
	r.results["fast"] = process.Result{Stdout: []string{"new"}}
	release := r.gate("slow")
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	first := s.Submit(RunCommand("leaf", "slow"))
	second := s.Submit(RunCommand("leaf", "fast"))
	require.Greater(t, second, first)

	got := pollUntil(t, s, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "new", string(got[0].Raw))

	close(release)
	require.Eventually(t, func() bool { return s.Stale() == 1 || len(s.Poll()) > 0 }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), s.Stale())
	assert.Empty(t, s.Poll())
}

func TestScheduler_CancelDropsCompletedButUndelivered(t *testing.T) {
	r := newFakeRunner()
	r.results["x"] = process.Result{Stdout: []string{"1"}}
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	s.Submit(RunCommand("leaf", "x"))
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.pending) == 1
	}, 3*time.Second, 5*time.Millisecond)

	s.Cancel("leaf")
	assert.Empty(t, s.Poll())
	assert.Equal(t, int64(1), s.Stale())
	assert.Equal(t, uint64(2), s.Current("leaf"))
}

// Whatever the interleaving of submits, cancels and completions, a delivered
// outcome always carries its target's live generation.
func TestScheduler_InterleavingsNeverApplyStaleGeneration(t *testing.T) {
	r := newFakeRunner()
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	targets := []Target{"a", "b", "c"}
	for i := 0; i < 60; i++ {
		tg := targets[i%len(targets)]
		cmd := "cmd" + string(rune('0'+i%10))
		r.mu.Lock()
		r.results[cmd] = process.Result{Stdout: []string{cmd}}
		r.mu.Unlock()
		switch i % 4 {
		case 0, 1:
			s.Submit(RunCommand(tg, cmd))
		case 2:
			s.Cancel(tg)
		case 3:
			for _, out := range s.Poll() {
				assert.Equal(t, s.Current(out.Target), out.Generation)
			}
		}
	}
	time.Sleep(50 * time.Millisecond)
	for _, out := range s.Poll() {
		assert.Equal(t, s.Current(out.Target), out.Generation)
	}
}

func TestScheduler_OrderedByCompletionPerTarget(t *testing.T) {
	r := newFakeRunner()
	r.results["a1"] = process.Result{Stdout: []string{"a1"}}
	r.results["b1"] = process.Result{Stdout: []string{"b1"}}
	gateA := r.gate("a1")
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	s.Submit(RunCommand("a", "a1"))
	s.Submit(RunCommand("b", "b1"))

	got := pollUntil(t, s, 1)
	require.Len(t, got, 1)
	assert.Equal(t, Target("b"), got[0].Target)

	close(gateA)
	got = pollUntil(t, s, 1)
	require.Len(t, got, 1)
	assert.Equal(t, Target("a"), got[0].Target)
}

func TestScheduler_InlineSmallFileMatchesAsyncPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pane.yaml"), []byte("title: hi\nitems: [1, 2]\n"), 0o644))

	inline := NewScheduler(context.Background(), WithBaseDir(dir))
	defer inline.Close()
	async := NewScheduler(context.Background(), WithBaseDir(dir), WithInlineLimit(0))
	defer async.Close()

	inline.Submit(LoadSource("p", "pane.yaml"))
	async.Submit(LoadSource("p", "pane.yaml"))

	// Inline resolution is queued, not returned from Submit.
	a := inline.Poll()
	b := pollUntil(t, async, 1)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, b[0], a[0])
	assert.Equal(t, "yaml", a[0].Format)
	assert.Equal(t, map[string]interface{}{"title": "hi", "items": []interface{}{float64(1), float64(2)}}, a[0].Value)
}

func TestScheduler_InlineRespectsCancel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# hi"), 0o644))
	s := NewScheduler(context.Background(), WithBaseDir(dir))
	defer s.Close()

	s.Submit(LoadSource("p", "a.md"))
	s.Cancel("p")
	assert.Empty(t, s.Poll())
}

func TestScheduler_LoadSourceMissingFile(t *testing.T) {
	s := NewScheduler(context.Background(), WithBaseDir(t.TempDir()))
	defer s.Close()

	s.Submit(LoadSource("p", "missing.yaml"))
	got := pollUntil(t, s, 1)
	require.Len(t, got, 1)
	assert.True(t, got[0].Failed())
	assert.True(t, errors.Is(got[0].Err, os.ErrNotExist))
}

func TestScheduler_LoadSourceCommandPrefix(t *testing.T) {
	r := newFakeRunner()
	r.results["list"] = process.Result{Stdout: []string{`[1,2]`}}
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	s.Submit(LoadSource("p", "cmd: list"))
	got := pollUntil(t, s, 1)
	require.Len(t, got, 1)
	assert.Equal(t, []interface{}{float64(1), float64(2)}, got[0].Value)
}

func TestScheduler_StreamDeliversProgressThenResult(t *testing.T) {
	r := newFakeRunner()
	r.lines["deploy"] = []process.Event{
		{Kind: process.Stdout, Line: `{"type":"progress","data":{"message":"building","stage":"build","percent":40}}`},
		{Kind: process.Stderr, Line: "noise"},
		{Kind: process.Stdout, Line: `{"type":"progress","data":{"message":"pushing","percent":90}}`},
		{Kind: process.Stdout, Line: `{"ok":true,"data":"done"}`},
	}
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	s.Submit(StreamCommand("pane-b", "deploy"))
	got := pollUntil(t, s, 3)
	require.Len(t, got, 3)

	require.True(t, got[0].Interim())
	assert.Equal(t, Progress{Message: "building", Stage: "build", Percent: 40}, *got[0].Progress)
	require.True(t, got[1].Interim())
	assert.Equal(t, "pushing", got[1].Progress.Message)
	assert.False(t, got[2].Interim())
	assert.Equal(t, `{"ok":true,"data":"done"}`, string(got[2].Raw))
}

func TestScheduler_CachedCommandRunsOnceWithinTTL(t *testing.T) {
	r := newFakeRunner()
	r.results["opts"] = process.Result{Stdout: []string{`{"data":{"items":["a"]}}`}}
	s := NewScheduler(context.Background(), WithRunner(r), WithCacheTTL(time.Minute))
	defer s.Close()

	req := RunCommand("field", "opts")
	req.Cached = true
	s.Submit(req)
	require.Len(t, pollUntil(t, s, 1), 1)
	s.Submit(req)
	got := pollUntil(t, s, 1)
	require.Len(t, got, 1)

	assert.Equal(t, 1, r.callCount("opts"))
	assert.Equal(t, []Choice{{Label: "a", Value: "a"}}, Choices(got[0].Value, ""))
}

func TestScheduler_CloseWaitsForWorkersWithoutDelivering(t *testing.T) {
	r := newFakeRunner()
	r.gate("hang")
	s := NewScheduler(context.Background(), WithRunner(r))

	s.Submit(RunCommand("t", "hang"))
	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Empty(t, s.Poll())
}

func TestScheduler_WakeSignalsOnDelivery(t *testing.T) {
	r := newFakeRunner()
	r.results["x"] = process.Result{Stdout: []string{"plain text"}}
	s := NewScheduler(context.Background(), WithRunner(r))
	defer s.Close()

	s.Submit(RunCommand("t", "x"))
	select {
	case <-s.Wake():
	case <-time.After(3 * time.Second):
		t.Fatal("no wake")
	}
	got := s.Poll()
	require.Len(t, got, 1)
	assert.Equal(t, "text", got[0].Format)
	assert.True(t, strings.HasPrefix(string(got[0].Raw), "plain"))
}
