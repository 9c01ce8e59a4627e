package schedule

// Bucket identifies when a task runs.
type Bucket int

// Buckets in drain order.
const (
	// Immediate tasks run first during startup.
	Immediate Bucket = iota

	// ImmediateIfFileArgs tasks run right after Immediate, and only when
	// the editor was invoked with file arguments.
	ImmediateIfFileArgs

	// Deferred tasks run after the first idle signal.
	Deferred

	bucketCount
)

// Buckets returns all buckets in drain order.
func Buckets() []Bucket {
	return []Bucket{Immediate, ImmediateIfFileArgs, Deferred}
}

// String returns the configuration-facing name of the bucket.
func (b Bucket) String() string {
	switch b {
	case Immediate:
		return "now"
	case ImmediateIfFileArgs:
		return "now_if_args"
	case Deferred:
		return "later"
	default:
		return "unknown"
	}
}

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	return b >= Immediate && b < bucketCount
}

// Phase is the scheduler's progression through startup.
type Phase int

// Phases. Transitions are monotonic.
const (
	// PhaseUnstarted - nothing has been drained yet.
	PhaseUnstarted Phase = iota

	// PhaseStartupRan - Immediate (and, if enabled, ImmediateIfFileArgs)
	// have been drained.
	PhaseStartupRan

	// PhaseDeferredRan - Deferred has been drained.
	PhaseDeferredRan
)

// String returns a string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseUnstarted:
		return "unstarted"
	case PhaseStartupRan:
		return "startup-ran"
	case PhaseDeferredRan:
		return "deferred-ran"
	default:
		return "unknown"
	}
}

// StartupContext carries the facts computed once at process start.
type StartupContext struct {
	// InvokedWithFileArgs is true when the editor was launched with one or
	// more file arguments.
	InvokedWithFileArgs bool
}
