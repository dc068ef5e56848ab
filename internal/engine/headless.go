package engine

import (
	"context"
	"time"

	"chitui/internal/panes"
	"chitui/pkg/logging"
)

// Summary is the machine-readable result of a headless run.
type Summary struct {
	OK            bool   `json:"ok"`
	ProgressSeen  bool   `json:"progress_seen"`
	StatusSeen    bool   `json:"status_seen"`
	View          string `json:"view"`
	ResultPresent bool   `json:"result_present"`
	EnterDone     bool   `json:"enter_done"`
}

// HeadlessOptions control RunHeadless.
type HeadlessOptions struct {
	Ticks    int
	Interval time.Duration
	// EnterID is a root menu item opened before the first tick.
	EnterID string
}

// RunHeadless drives the engine for a fixed number of ticks without a
// terminal. It stops early when ctx is done.
func RunHeadless(ctx context.Context, e *Engine, opts HeadlessOptions) Summary {
	logging.Info("Engine", "headless run: %d ticks every %s", opts.Ticks, opts.Interval)
	for i := 0; i < opts.Ticks; i++ {
		var inputs []Input
		if i == 0 && opts.EnterID != "" {
			inputs = append(inputs, EnterInput{ID: opts.EnterID})
		}
		e.Tick(inputs)
		if e.Quitting() || i == opts.Ticks-1 {
			break
		}
		select {
		case <-ctx.Done():
			return e.Summary()
		case <-time.After(opts.Interval):
		case <-e.sched.Wake():
		}
	}
	return e.Summary()
}

// Summary reports what the session has shown so far.
func (e *Engine) Summary() Summary {
	ok := e.enterErr == nil
	view := ""
	if len(e.screens) > 0 {
		top := e.Top()
		view = top.Kind
		for _, p := range top.Tree.Leaves() {
			if p.Status == panes.StatusFailed {
				ok = false
			}
		}
	}
	return Summary{
		OK:            ok,
		ProgressSeen:  e.progressSeen,
		StatusSeen:    e.statusSeen,
		View:          view,
		ResultPresent: e.resultPresent,
		EnterDone:     e.enterDone,
	}
}
