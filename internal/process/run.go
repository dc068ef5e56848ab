package process

import (
	"context"
	"strings"
)

// Result is the collected output of a finished command.
type Result struct {
	Stdout []string
	Stderr []string
	Code   int
}

// StdoutText joins stdout lines with newlines.
func (r Result) StdoutText() string {
	return strings.Join(r.Stdout, "\n")
}

// StderrText joins stderr lines with newlines.
func (r Result) StderrText() string {
	return strings.Join(r.Stderr, "\n")
}

// Success reports a zero exit code.
func (r Result) Success() bool {
	return r.Code == 0
}

// Run spawns command and blocks until it exits, collecting its output.
// onLine, when non-nil, sees every line as it arrives. Run is meant for
// worker goroutines; the main loop uses Spawn and drains Events instead.
func Run(ctx context.Context, command string, opts Options, onLine func(Event)) Result {
	h := Spawn(ctx, command, opts)
	var res Result
	for ev := range h.Events() {
		if onLine != nil && ev.Kind != Exited {
			onLine(ev)
		}
		switch ev.Kind {
		case Stdout:
			res.Stdout = append(res.Stdout, ev.Line)
		case Stderr:
			res.Stderr = append(res.Stderr, ev.Line)
		case Exited:
			res.Code = ev.Code
		}
	}
	return res
}
