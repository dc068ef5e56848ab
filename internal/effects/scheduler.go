package effects

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"chitui/internal/process"
	"chitui/pkg/logging"
)

// DefaultInlineLimit is the largest local file resolved without a worker.
const DefaultInlineLimit = 64 * 1024

// Runner executes shell commands on behalf of the scheduler's workers.
type Runner interface {
	Run(ctx context.Context, command string, onLine func(process.Event)) process.Result
}

// ShellRunner runs commands through the process channel.
type ShellRunner struct {
	Opts process.Options
}

func (r ShellRunner) Run(ctx context.Context, command string, onLine func(process.Event)) process.Result {
	return process.Run(ctx, command, r.Opts, onLine)
}

// Scheduler runs effect requests off the main loop and hands their outcomes
// back through Poll. Stale outcomes are dropped at delivery time.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	runner      Runner
	baseDir     string
	inlineLimit int64
	cache       *OptionsCache

	mu      sync.Mutex
	gens    map[Target]uint64
	pending []Outcome

	notify chan struct{}
	wg     sync.WaitGroup
	stale  atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunner replaces the shell runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(s *Scheduler) { s.runner = r }
}

// WithBaseDir sets the directory relative sources resolve against.
func WithBaseDir(dir string) Option {
	return func(s *Scheduler) { s.baseDir = dir }
}

// WithCacheTTL enables the options cache for Cached requests. Zero disables it.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Scheduler) { s.cache = NewOptionsCache(ttl) }
}

// WithInlineLimit sets the inline fast-path size; zero or less disables it.
func WithInlineLimit(n int64) Option {
	return func(s *Scheduler) { s.inlineLimit = n }
}

// NewScheduler creates a scheduler whose workers stop with ctx.
func NewScheduler(ctx context.Context, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		ctx:         ctx,
		cancel:      cancel,
		runner:      ShellRunner{},
		inlineLimit: DefaultInlineLimit,
		cache:       NewOptionsCache(0),
		gens:        make(map[Target]uint64),
		notify:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit assigns the next generation of req.Target and starts the work.
func (s *Scheduler) Submit(req Request) uint64 {
	s.mu.Lock()
	s.gens[req.Target]++
	gen := s.gens[req.Target]
	s.mu.Unlock()

	logging.Debug("Effects", "submit %s target=%s gen=%d", req.Kind, req.Target, gen)

	if out, ok := s.resolveInline(req, gen); ok {
		s.deliver(out)
		return gen
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(req, gen)
	}()
	return gen
}

// Cancel bumps the target's generation so outstanding work for it is
// ignored on arrival. Running work is not interrupted.
func (s *Scheduler) Cancel(target Target) {
	s.mu.Lock()
	s.gens[target]++
	s.mu.Unlock()
}

// Current returns the live generation of target; zero if never submitted.
func (s *Scheduler) Current(target Target) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[target]
}

// Poll drains completed work without blocking. Outcomes are returned in
// completion order; those whose generation is no longer live are dropped.
func (s *Scheduler) Poll() []Outcome {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	var live []Outcome
	for _, out := range pending {
		if out.Generation != s.gens[out.Target] {
			s.stale.Add(1)
			logging.Debug("Effects", "dropping stale outcome target=%s gen=%d live=%d", out.Target, out.Generation, s.gens[out.Target])
			continue
		}
		live = append(live, out)
	}
	s.mu.Unlock()
	return live
}

// Stale reports how many outcomes were discarded as stale.
func (s *Scheduler) Stale() int64 {
	return s.stale.Load()
}

// Wake is signalled whenever an outcome is queued, so a driver can poll
// early instead of waiting for its next tick.
func (s *Scheduler) Wake() <-chan struct{} {
	return s.notify
}

// Close stops accepting results and waits for running workers to return.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) deliver(out Outcome) {
	s.mu.Lock()
	s.pending = append(s.pending, out)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) execute(req Request, gen uint64) {
	base := Outcome{Target: req.Target, Generation: gen, Kind: req.Kind}

	var out Outcome
	switch req.Kind {
	case KindRunCommand:
		out = s.runCommand(base, req)
	case KindLoadSource:
		out = s.loadSource(base, req.Source)
	case KindStreamCommand:
		out = s.streamCommand(base, req.Command)
	default:
		out = base
		out.Err = errUnknownKind(req.Kind)
	}

	if s.ctx.Err() != nil {
		return
	}
	if out.Err != nil {
		logging.Debug("Effects", "%s target=%s gen=%d failed: %v", req.Kind, req.Target, gen, out.Err)
	}
	s.deliver(out)
}
