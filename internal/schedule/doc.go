// Package schedule implements the staged activation scheduler used during
// editor startup.
//
// Configuration work is registered into one of three buckets:
//
//	Immediate            runs before the editor becomes interactive
//	ImmediateIfFileArgs  runs right after Immediate, only when the editor
//	                     was launched with file arguments
//	Deferred             runs after the host's first idle signal
//
// Within a bucket tasks run in registration order. A failing task is
// reported and isolated: its siblings and later buckets still run.
//
//	s := schedule.New(schedule.WithReporter(reporter))
//	s.Now("colors", setupColors)
//	s.NowIfArgs("treesitter", setupTreesitter)
//	s.Later("lint", setupLint)
//
//	_ = s.RunStartup(schedule.StartupContext{InvokedWithFileArgs: len(files) > 0})
//	<-idle
//	_ = s.RunDeferred()
//
// The scheduler is owned by a single sequencing goroutine and is not safe
// for concurrent use.
package schedule
