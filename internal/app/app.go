// Package app wires the keystage host together: settings, logging,
// diagnostics, the plugin and tool registries, the configuration script
// runtime and the staged activation scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dshills/keystage/internal/config"
	"github.com/dshills/keystage/internal/config/watcher"
	"github.com/dshills/keystage/internal/notify"
	"github.com/dshills/keystage/internal/plugin"
	"github.com/dshills/keystage/internal/plugin/lua"
	"github.com/dshills/keystage/internal/schedule"
	"github.com/dshills/keystage/internal/tools"
)

// Application hosts one startup of the editor configuration.
type Application struct {
	mu sync.Mutex

	opts      Options
	settings  *config.Settings
	sessionID string
	startup   schedule.StartupContext

	logger    *Logger
	logFile   io.Closer
	notifier  *notify.Notifier
	scheduler *schedule.Scheduler
	plugins   *plugin.Registry
	tools     *tools.Registry
	lua       *lua.State
	watcher   *watcher.Watcher

	// declareOnly makes stage.add record plugins without installing them.
	declareOnly bool

	// runCtx bounds host work started from the configuration script.
	runCtx context.Context

	started atomic.Bool
	closed  atomic.Bool
}

// Options configures the application.
type Options struct {
	// InitPath overrides the configuration script location.
	InitPath string

	// SettingsPath names the settings file. Empty uses the default
	// locations.
	SettingsPath string

	// Files are the file arguments the editor was launched with.
	Files []string

	// LogLevel overrides the configured log level.
	LogLevel string

	// Wait keeps Run alive after the deferred phase, reporting
	// configuration changes until the context ends.
	Wait bool

	// Stdout receives diagnostics and script output. Defaults to os.Stdout.
	Stdout io.Writer

	// Stderr receives the log unless a log file is configured.
	// Defaults to os.Stderr.
	Stderr io.Writer

	// Settings skips loading settings from disk and the environment.
	Settings *config.Settings

	// Installer replaces the git installer.
	Installer plugin.Installer

	// Idle replaces the idle trigger derived from startup.idle_delay.
	Idle IdleSource
}

// New creates an Application and initializes its components.
func New(opts Options) (*Application, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	app := &Application{
		opts:    opts,
		startup: schedule.StartupContext{InvokedWithFileArgs: len(opts.Files) > 0},
	}
	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Run executes the configuration script, drains the startup buckets, waits
// for the first idle signal and drains the deferred bucket. With
// Options.Wait it then blocks until ctx ends.
//
// Failures of individual tasks do not stop the sequence; they are reported
// as diagnostics as they happen and returned together.
func (app *Application) Run(ctx context.Context) error {
	if err := app.begin(); err != nil {
		return err
	}
	return app.run(ctx, app.opts.Wait)
}

func (app *Application) run(ctx context.Context, wait bool) error {
	log := app.Logger().WithComponent("run")
	app.runCtx = ctx

	errs := NewErrorList()
	errs.Add(app.register())

	log.Debug("running startup, file args: %t", app.startup.InvokedWithFileArgs)
	errs.Add(app.scheduler.RunStartup(app.startup))

	select {
	case <-app.idle().Idle(ctx):
	case <-ctx.Done():
		log.Info("stopped before idle, deferred tasks skipped: %d", app.scheduler.Pending(schedule.Deferred))
		return errs.AsError()
	}

	log.Debug("idle, running deferred tasks")
	errs.Add(app.scheduler.RunDeferred())

	if wait {
		if err := app.startWatcher(); err != nil {
			app.logComponentError("watcher", err)
			app.notifier.Warn("watcher", "configuration changes will not be reported: %v", err)
		}
		<-ctx.Done()
	}
	return errs.AsError()
}

// PlanReport is what the configuration script would do at the top level.
// Task bodies are not executed, so plugins added from inside a task are
// not part of Plugins.
type PlanReport struct {
	Tasks   schedule.Plan
	Plugins []string
}

// Plan executes the configuration script without running any task or
// installing any plugin.
func (app *Application) Plan(ctx context.Context) (*PlanReport, error) {
	if err := app.begin(); err != nil {
		return nil, err
	}
	app.declareOnly = true
	app.runCtx = ctx

	err := app.register()
	report := &PlanReport{Tasks: app.scheduler.Snapshot()}
	for _, e := range app.plugins.List() {
		report.Plugins = append(report.Plugins, e.Spec.String())
	}
	return report, err
}

// Close releases the application's resources. It is safe to call Close
// multiple times.
func (app *Application) Close() error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}

	errs := NewErrorList()
	if app.watcher != nil {
		errs.Add(app.watcher.Close())
	}
	if app.lua != nil {
		errs.Add(app.lua.Close())
	}
	if app.notifier != nil {
		app.notifier.Close()
	}
	if app.logFile != nil {
		errs.Add(app.logFile.Close())
	}
	return errs.AsError()
}

// begin marks the application as started.
func (app *Application) begin() error {
	if app.closed.Load() {
		return ErrClosed
	}
	if !app.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	return nil
}

// register executes the configuration script. A missing script registers
// nothing.
func (app *Application) register() error {
	path := app.InitPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			app.notifier.Info("config", "no configuration script at %s", path)
			return nil
		}
		return WrapError(err, "reading configuration script")
	}

	app.Logger().WithComponent("lua").Debug("executing %s", path)
	if err := app.lua.DoFile(path); err != nil {
		err = &ComponentError{Component: filepath.Base(path), Err: fmt.Errorf("%w: %w", ErrInitScript, err)}
		app.notifier.Error("config", err)
		return err
	}
	return nil
}

// runContext returns the context of the current run.
func (app *Application) runContext() context.Context {
	if app.runCtx == nil {
		return context.Background()
	}
	return app.runCtx
}

func (app *Application) idle() IdleSource {
	if app.opts.Idle != nil {
		return app.opts.Idle
	}
	return IdleTrigger{Delay: app.settings.Startup.IdleDelay}
}

func (app *Application) startWatcher() error {
	if !app.settings.Watch.Enabled {
		return nil
	}

	w, err := watcher.New(
		watcher.WithDebounce(app.settings.Watch.Debounce),
		watcher.WithMinInterval(app.settings.Watch.MinInterval),
		watcher.WithErrorHandler(func(err error) {
			app.logComponentError("watcher", err)
		}),
	)
	if err != nil {
		return err
	}
	app.mu.Lock()
	app.watcher = w
	app.mu.Unlock()

	paths := []string{app.InitPath()}
	if app.opts.SettingsPath != "" {
		paths = append(paths, app.opts.SettingsPath)
	}
	for _, p := range paths {
		if err := w.Watch(p); err != nil {
			return NewComponentError("watcher", "watch "+p, err)
		}
	}

	w.OnChange(func(ev watcher.Event) {
		app.notifier.Warn("config", "%s changed (%s); restart to apply", filepath.Base(ev.Path), ev.Op)
	})
	return w.Start()
}

// InitPath returns the configuration script path in use.
func (app *Application) InitPath() string {
	if app.opts.InitPath != "" {
		return app.opts.InitPath
	}
	return app.settings.Paths.Init
}

// Settings returns the effective settings.
func (app *Application) Settings() *config.Settings { return app.settings }

// SessionID identifies this run in logs and diagnostics.
func (app *Application) SessionID() string { return app.sessionID }

// Scheduler returns the activation scheduler.
func (app *Application) Scheduler() *schedule.Scheduler { return app.scheduler }

// Plugins returns the plugin registry.
func (app *Application) Plugins() *plugin.Registry { return app.plugins }

// Tools returns the tool configuration registry.
func (app *Application) Tools() *tools.Registry { return app.tools }

// Notifier returns the diagnostic channel.
func (app *Application) Notifier() *notify.Notifier { return app.notifier }
