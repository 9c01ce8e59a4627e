package schedule

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// Action is a unit of configuration work. A returned error or a panic
// makes the task fail.
type Action func() error

// Task is a registered action with its label and bucket.
type Task struct {
	Name   string
	Bucket Bucket
	Action Action
}

// TaskResult describes a finished task.
type TaskResult struct {
	Task     Task
	Duration time.Duration
	Failure  *ActionFailure
}

// TaskHook observes every task the scheduler runs.
type TaskHook func(result TaskResult)

// Plan lists queued task names per bucket.
type Plan struct {
	Immediate           []string
	ImmediateIfFileArgs []string
	Deferred            []string
}

// Names returns the queued names for a bucket.
func (p Plan) Names(b Bucket) []string {
	switch b {
	case Immediate:
		return p.Immediate
	case ImmediateIfFileArgs:
		return p.ImmediateIfFileArgs
	case Deferred:
		return p.Deferred
	default:
		return nil
	}
}

// Scheduler queues tasks into buckets and drains them at startup and at
// the first idle signal.
type Scheduler struct {
	buckets  [bucketCount][]Task
	counts   [bucketCount]int
	draining [bucketCount]bool
	drained  [bucketCount]bool

	phase   Phase
	running bool // a RunStartup or RunDeferred is draining
	startup StartupContext

	reporter Reporter
	hook     TaskHook
	now      func() time.Time

	failures []*ActionFailure
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithReporter sets where failures are reported as they happen.
func WithReporter(r Reporter) Option {
	return func(s *Scheduler) {
		s.reporter = r
	}
}

// WithTaskHook sets an observer called after every task.
func WithTaskHook(h TaskHook) Option {
	return func(s *Scheduler) {
		s.hook = h
	}
}

// WithClock overrides the time source used for task durations.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty scheduler in PhaseUnstarted.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now registers a task into the Immediate bucket.
func (s *Scheduler) Now(name string, action Action) {
	s.Register(Immediate, name, action)
}

// NowIfArgs registers a task into the ImmediateIfFileArgs bucket.
func (s *Scheduler) NowIfArgs(name string, action Action) {
	s.Register(ImmediateIfFileArgs, name, action)
}

// Later registers a task into the Deferred bucket.
func (s *Scheduler) Later(name string, action Action) {
	s.Register(Deferred, name, action)
}

// Register appends a task to bucket b.
//
// A task registered while its bucket drains runs in the same drain after
// the current tail. A task registered into a bucket that has already been
// drained runs immediately when its gate holds; an ImmediateIfFileArgs task
// registered after a startup without file arguments is discarded.
func (s *Scheduler) Register(b Bucket, name string, action Action) {
	if !b.Valid() || action == nil {
		return
	}

	s.counts[b]++
	if name == "" {
		name = fmt.Sprintf("%s#%d", b, s.counts[b])
	}
	task := Task{Name: name, Bucket: b, Action: action}

	if s.drained[b] && !s.draining[b] {
		if s.gateOpen(b) {
			s.run(task)
		}
		return
	}
	s.buckets[b] = append(s.buckets[b], task)
}

// RunStartup drains Immediate, then ImmediateIfFileArgs when the editor was
// invoked with file arguments. Without file arguments the
// ImmediateIfFileArgs tasks are dropped and never run.
//
// Returns the joined failures of the drained tasks. Calling RunStartup
// again, including from a running task, is a no-op.
func (s *Scheduler) RunStartup(ctx StartupContext) error {
	if s.phase != PhaseUnstarted || s.running {
		return nil
	}
	s.running = true
	defer func() { s.running = false }()
	s.startup = ctx

	var errs []error
	errs = append(errs, s.drain(Immediate)...)
	if ctx.InvokedWithFileArgs {
		errs = append(errs, s.drain(ImmediateIfFileArgs)...)
	} else {
		s.discard(ImmediateIfFileArgs)
	}

	s.phase = PhaseStartupRan
	return errors.Join(errs...)
}

// RunDeferred drains the Deferred bucket. It must follow RunStartup;
// otherwise nothing runs and ErrStartupPending is returned. Calling it
// again, including from a running task, is a no-op.
func (s *Scheduler) RunDeferred() error {
	switch s.phase {
	case PhaseUnstarted:
		return ErrStartupPending
	case PhaseDeferredRan:
		return nil
	}
	if s.running {
		return nil
	}
	s.running = true
	defer func() { s.running = false }()

	errs := s.drain(Deferred)
	s.phase = PhaseDeferredRan
	return errors.Join(errs...)
}

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase {
	return s.phase
}

// Pending returns the number of queued tasks in bucket b.
func (s *Scheduler) Pending(b Bucket) int {
	if !b.Valid() {
		return 0
	}
	return len(s.buckets[b])
}

// Snapshot returns the names of all queued tasks.
func (s *Scheduler) Snapshot() Plan {
	names := func(b Bucket) []string {
		out := make([]string, len(s.buckets[b]))
		for i, t := range s.buckets[b] {
			out[i] = t.Name
		}
		return out
	}
	return Plan{
		Immediate:           names(Immediate),
		ImmediateIfFileArgs: names(ImmediateIfFileArgs),
		Deferred:            names(Deferred),
	}
}

// Failures returns every failure recorded so far, including failures of
// tasks that ran at registration time.
func (s *Scheduler) Failures() []*ActionFailure {
	out := make([]*ActionFailure, len(s.failures))
	copy(out, s.failures)
	return out
}

// drain runs bucket b in order, including tasks appended while draining.
func (s *Scheduler) drain(b Bucket) []error {
	s.draining[b] = true
	defer func() {
		s.draining[b] = false
		s.drained[b] = true
		s.buckets[b] = nil
	}()

	var errs []error
	for i := 0; i < len(s.buckets[b]); i++ {
		if f := s.run(s.buckets[b][i]); f != nil {
			errs = append(errs, f)
		}
	}
	return errs
}

func (s *Scheduler) discard(b Bucket) {
	s.buckets[b] = nil
	s.drained[b] = true
}

func (s *Scheduler) gateOpen(b Bucket) bool {
	if b == ImmediateIfFileArgs {
		return s.startup.InvokedWithFileArgs
	}
	return true
}

// run executes one task, isolating errors and panics.
func (s *Scheduler) run(task Task) *ActionFailure {
	start := s.now()
	failure := invoke(task)
	elapsed := s.now().Sub(start)

	if failure != nil {
		s.failures = append(s.failures, failure)
		if s.reporter != nil {
			s.reporter.Report(failure)
		}
	}
	if s.hook != nil {
		s.hook(TaskResult{Task: task, Duration: elapsed, Failure: failure})
	}
	return failure
}

func invoke(task Task) (failure *ActionFailure) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}
			failure = &ActionFailure{
				Task:   task.Name,
				Bucket: task.Bucket,
				Err:    err,
				Panic:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	if err := task.Action(); err != nil {
		return &ActionFailure{Task: task.Name, Bucket: task.Bucket, Err: err}
	}
	return nil
}
