package schedule

import (
	"errors"
	"fmt"
)

// ErrStartupPending is returned by RunDeferred when RunStartup has not run.
var ErrStartupPending = errors.New("schedule: startup phase has not run")

// ActionFailure records a task whose action returned an error or panicked.
type ActionFailure struct {
	Task   string
	Bucket Bucket
	Err    error

	// Panic holds the recovered value when the action panicked.
	Panic any
	Stack string
}

func (f *ActionFailure) Error() string {
	if f == nil {
		return ""
	}
	if f.Panic != nil {
		return fmt.Sprintf("%s task %q panicked: %v", f.Bucket, f.Task, f.Panic)
	}
	return fmt.Sprintf("%s task %q: %v", f.Bucket, f.Task, f.Err)
}

func (f *ActionFailure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Reporter receives action failures as soon as they happen.
type Reporter interface {
	Report(failure *ActionFailure)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(failure *ActionFailure)

// Report implements Reporter.
func (f ReporterFunc) Report(failure *ActionFailure) {
	if f == nil {
		return
	}
	f(failure)
}
