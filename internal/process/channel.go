package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"chitui/pkg/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Sentinel exit codes. Real processes report 0..255 (or 128+signal), so
// negative values never collide with a natural exit.
const (
	// ExitSpawnFailed is reported when the command could not be started.
	ExitSpawnFailed = -1
	// ExitKilled is reported when the handle's owner terminated the process.
	ExitKilled = -9
)

const (
	eventBufferSize = 256
	maxLineSize     = 1024 * 1024

	// pipeDrainIdle is how long output pipes may stay silent after the
	// process exited before reading stops.
	pipeDrainIdle = 250 * time.Millisecond
)

// EventKind distinguishes the three kinds of channel events.
type EventKind int

const (
	Stdout EventKind = iota
	Stderr
	Exited
)

func (k EventKind) String() string {
	switch k {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Event is one line of output or the final exit notification.
type Event struct {
	Kind  EventKind
	Line  string
	Code  int
	RunID string
}

// Options tune how a command is spawned.
type Options struct {
	// Env is appended to the inherited environment.
	Env []string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Shell runs the command line; defaults to "sh".
	Shell string
}

// Handle owns one spawned process. Only the owner may call Terminate.
type Handle struct {
	runID   string
	command string
	events  chan Event

	mu       sync.Mutex
	cmd      *exec.Cmd
	pid      int
	exited   bool
	killed   atomic.Bool
	detached chan struct{}
	detach   sync.Once
}

// Spawn starts `sh -c command` in its own process group and streams its
// output. It never fails: a command that cannot start yields a stderr line
// followed by Exited(ExitSpawnFailed). Cancelling ctx terminates the process.
func Spawn(ctx context.Context, command string, opts Options) *Handle {
	h := &Handle{
		runID:    uuid.NewString(),
		command:  command,
		events:   make(chan Event, eventBufferSize),
		detached: make(chan struct{}),
	}

	shell := opts.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.Command(shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(os.Environ(), "CHI_TUI_JSON=1")
	cmd.Env = append(cmd.Env, opts.Env...)
	cmd.Dir = opts.Dir

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.failSpawn(fmt.Errorf("stdout pipe: %w", err))
		return h
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		h.failSpawn(fmt.Errorf("stderr pipe: %w", err))
		return h
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)
	if err != nil {
		closeAll(stdoutR, stderrR)
		h.failSpawn(err)
		return h
	}

	h.mu.Lock()
	h.cmd = cmd
	h.pid = cmd.Process.Pid
	h.mu.Unlock()
	logging.Debug("Process", "spawned pid=%d run=%s: %s", h.pid, h.runID, command)

	go h.manage(ctx, cmd, stdoutR, stderrR)
	return h
}

func (h *Handle) failSpawn(err error) {
	logging.Warn("Process", "spawn failed for %q: %v", h.command, err)
	h.events <- Event{Kind: Stderr, Line: "spawn error: " + err.Error(), RunID: h.runID}
	h.events <- Event{Kind: Exited, Code: ExitSpawnFailed, RunID: h.runID}
	close(h.events)
}

func (h *Handle) manage(ctx context.Context, cmd *exec.Cmd, stdout, stderr *os.File) {
	defer close(h.events)
	defer closeAll(stdout, stderr)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			h.Terminate()
		case <-stop:
		}
	}()

	var reaped atomic.Bool
	var g errgroup.Group
	g.Go(func() error { return h.pump(drainReader{f: stdout, reaped: &reaped}, Stdout) })
	g.Go(func() error { return h.pump(drainReader{f: stderr, reaped: &reaped}, Stderr) })

	// Both pipe ends are *os.File, so Wait returns as soon as the shell is
	// reaped even when a background child still holds stdout open.
	code := exitCode(cmd.Wait())
	reaped.Store(true)
	deadline := time.Now().Add(pipeDrainIdle)
	_ = stdout.SetReadDeadline(deadline)
	_ = stderr.SetReadDeadline(deadline)

	if err := g.Wait(); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			logging.Debug("Process", "run=%s: output pipe still open after exit, stopped reading", h.runID)
		} else if !errors.Is(err, os.ErrClosed) {
			logging.Debug("Process", "reader for run=%s ended: %v", h.runID, err)
		}
	}

	if h.killed.Load() {
		code = ExitKilled
	}

	h.mu.Lock()
	h.exited = true
	h.mu.Unlock()

	logging.Debug("Process", "pid=%d run=%s exited with %d", h.pid, h.runID, code)
	h.send(Event{Kind: Exited, Code: code, RunID: h.runID})
}

// drainReader reads a pipe until EOF. Once the process has been reaped,
// every read is bounded by pipeDrainIdle, so a pipe kept open by a
// background child stops being read after it goes quiet.
type drainReader struct {
	f      *os.File
	reaped *atomic.Bool
}

func (r drainReader) Read(p []byte) (int, error) {
	if r.reaped.Load() {
		_ = r.f.SetReadDeadline(time.Now().Add(pipeDrainIdle))
	}
	return r.f.Read(p)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func (h *Handle) pump(r io.Reader, kind EventKind) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		h.send(Event{Kind: kind, Line: scanner.Text(), RunID: h.runID})
	}
	return scanner.Err()
}

// send blocks while the consumer is behind, unless the consumer has detached.
func (h *Handle) send(ev Event) {
	select {
	case h.events <- ev:
	case <-h.detached:
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return ExitSpawnFailed
}

// Events yields output lines in order and ends with exactly one Exited
// event, after which the channel is closed.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Terminate kills the whole process group. The resulting Exited event
// carries ExitKilled. Calling it after the process exited is a no-op.
func (h *Handle) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.exited {
		return
	}
	if !h.killed.CompareAndSwap(false, true) {
		return
	}
	if err := syscall.Kill(-h.pid, syscall.SIGKILL); err != nil {
		h.killed.Store(false)
		logging.Error("Process", err, "failed to kill pid=%d run=%s", h.pid, h.runID)
		return
	}
	logging.Debug("Process", "killed pid=%d run=%s", h.pid, h.runID)
}

// Detach tells the handle nobody reads Events any more so its goroutines
// can finish. Pending events are discarded.
func (h *Handle) Detach() {
	h.detach.Do(func() { close(h.detached) })
}

// RunID identifies this spawn in logs.
func (h *Handle) RunID() string { return h.runID }

// Command is the command line that was spawned.
func (h *Handle) Command() string { return h.command }

// PID is the process id, or zero when spawning failed.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}
