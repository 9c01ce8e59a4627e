package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dshills/keystage/internal/config"
	"github.com/dshills/keystage/internal/notify"
	"github.com/dshills/keystage/internal/plugin"
	"github.com/dshills/keystage/internal/plugin/lua"
	"github.com/dshills/keystage/internal/schedule"
	"github.com/dshills/keystage/internal/tools"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      app.opts,
		initOrder: make([]string, 0, 7),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initSettings,
		b.initLogger,
		b.initNotifier,
		b.initScheduler,
		b.initPlugins,
		b.initTools,
		b.initLua,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

// initSettings loads settings unless they were provided. Provided
// settings are copied so overrides never reach the caller.
func (b *bootstrapper) initSettings() error {
	var settings *config.Settings
	if b.opts.Settings != nil {
		copied := *b.opts.Settings
		settings = &copied
	} else {
		loaded, err := config.Load(b.opts.SettingsPath)
		if err != nil {
			return &InitError{Component: "settings", Err: err}
		}
		settings = loaded
	}
	if b.opts.LogLevel != "" {
		settings.Logging.Level = b.opts.LogLevel
		if err := settings.Validate(); err != nil {
			return &InitError{Component: "settings", Err: err}
		}
	}
	b.app.settings = settings
	b.initOrder = append(b.initOrder, "settings")
	return nil
}

// initLogger creates the process logger and tags it with a session id.
func (b *bootstrapper) initLogger() error {
	s := b.app.settings.Logging

	cfg := DefaultLoggerConfig()
	cfg.Level = ParseLogLevel(s.Level)
	cfg.JSON = s.Format == "json"
	cfg.Output = b.opts.Stderr

	if s.File != "" {
		if err := os.MkdirAll(filepath.Dir(s.File), 0o755); err != nil {
			return &InitError{Component: "logger", Err: err}
		}
		f, err := os.OpenFile(s.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return &InitError{Component: "logger", Err: err}
		}
		b.app.logFile = f
		cfg.Output = f
	}

	b.app.sessionID = uuid.NewString()
	b.app.logger = NewLogger(cfg).WithField("session", b.app.sessionID)
	SetLogger(b.app.logger)

	b.initOrder = append(b.initOrder, "logger")
	return nil
}

// initNotifier creates the diagnostic channel and prints diagnostics at
// or above the configured level.
func (b *bootstrapper) initNotifier() error {
	log := b.app.logger.WithComponent("notify")

	opts := []notify.Option{
		notify.WithPanicHandler(func(r any) {
			log.Error("observer panic: %v", r)
		}),
	}
	if n := b.app.settings.Notify.Buffer; n > 0 {
		opts = append(opts, notify.WithAsync(n))
	}
	b.app.notifier = notify.New(opts...)

	minLevel, ok := notify.ParseLevel(b.app.settings.Notify.Level)
	if !ok {
		log.Warn("unknown notify level %q, using %s", b.app.settings.Notify.Level, minLevel)
	}
	out := b.opts.Stdout
	b.app.notifier.SubscribeLevel(minLevel, func(d notify.Diagnostic) {
		fmt.Fprintln(out, d.String())
	})
	b.app.notifier.Subscribe(func(d notify.Diagnostic) {
		if d.Err != nil {
			log.WithField("source", d.Source).Err(d.Err, "%s", d.Message)
			return
		}
		log.WithField("source", d.Source).Debug("[%s] %s", d.Level, d.Message)
	})

	b.initOrder = append(b.initOrder, "notifier")
	return nil
}

// initScheduler creates the activation scheduler. Failed tasks become
// error diagnostics as they happen.
func (b *bootstrapper) initScheduler() error {
	log := b.app.logger.WithComponent("schedule")
	notifier := b.app.notifier

	b.app.scheduler = schedule.New(
		schedule.WithReporter(schedule.ReporterFunc(func(f *schedule.ActionFailure) {
			notifier.Notify(notify.Diagnostic{
				Level:   notify.LevelError,
				Source:  f.Task,
				Message: fmt.Sprintf("%s task failed", f.Bucket),
				Err:     f.Err,
			})
			if f.Panic != nil {
				log.Debug("panic stack for %s:\n%s", f.Task, f.Stack)
			}
		})),
		schedule.WithTaskHook(func(r schedule.TaskResult) {
			log.WithFields(map[string]any{
				"task":     r.Task.Name,
				"bucket":   r.Task.Bucket.String(),
				"duration": r.Duration.String(),
				"failed":   r.Failure != nil,
			}).Debug("task finished")
		}),
	)

	b.initOrder = append(b.initOrder, "scheduler")
	return nil
}

// initPlugins creates the plugin registry and forwards its events.
func (b *bootstrapper) initPlugins() error {
	s := b.app.settings.Plugins

	installer := b.opts.Installer
	if installer == nil {
		installer = plugin.NewGitInstaller(s.Dir,
			plugin.WithGitExecutable(s.Git),
			plugin.WithGitTimeout(s.GitTimeout),
		)
	}
	if !s.Install {
		installer = plugin.Offline(installer)
	}

	b.app.plugins = plugin.NewRegistry(installer)

	notifier := b.app.notifier
	b.app.plugins.Subscribe(func(ev plugin.Event) {
		switch ev.Type {
		case plugin.EventPluginInstalled:
			notifier.Info("plugin", "installed %s", ev.Plugin)
		case plugin.EventPluginCheckedOut:
			notifier.Info("plugin", "updated %s", ev.Plugin)
		case plugin.EventPluginError:
			notifier.Error("plugin "+ev.Plugin, ev.Error)
		default:
			notifier.Debug("plugin", "%s %s", ev.Type, ev.Plugin)
		}
	})

	b.initOrder = append(b.initOrder, "plugins")
	return nil
}

// initTools creates the tool configuration registry.
func (b *bootstrapper) initTools() error {
	b.app.tools = tools.NewRegistry()
	b.initOrder = append(b.initOrder, "tools")
	return nil
}

// initLua creates the configuration script runtime with the stage module.
func (b *bootstrapper) initLua() error {
	state, err := lua.NewState(
		lua.WithExecutionTimeout(b.app.settings.Startup.LuaTimeout),
		lua.WithStdout(b.opts.Stdout),
	)
	if err != nil {
		return &InitError{Component: "lua", Err: err}
	}
	b.app.lua = state
	state.Preload(StageModule, b.app.stageLoader)

	b.initOrder = append(b.initOrder, "lua")
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "lua":
			if b.app.lua != nil {
				_ = b.app.lua.Close()
			}
		case "notifier":
			if b.app.notifier != nil {
				b.app.notifier.Close()
			}
		case "logger":
			if b.app.logFile != nil {
				_ = b.app.logFile.Close()
				b.app.logFile = nil
			}
		}
	}
	b.initOrder = nil
}
