package config

import (
	"os"
	"path/filepath"
	"time"
)

// Settings is the complete host configuration.
type Settings struct {
	Paths   PathsSettings   `yaml:"paths"`
	Startup StartupSettings `yaml:"startup"`
	Plugins PluginSettings  `yaml:"plugins"`
	Logging LoggingSettings `yaml:"logging"`
	Notify  NotifySettings  `yaml:"notify"`
	Watch   WatchSettings   `yaml:"watch"`
}

// PathsSettings locates user files.
type PathsSettings struct {
	// Init is the configuration script executed at startup.
	Init string `yaml:"init"`
}

// StartupSettings controls the startup sequence.
type StartupSettings struct {
	// IdleDelay is how long after startup the host reports being idle,
	// which releases deferred work.
	IdleDelay time.Duration `yaml:"idle_delay"`

	// LuaTimeout bounds each entry into the configuration script.
	// Zero disables the bound.
	LuaTimeout time.Duration `yaml:"lua_timeout"`
}

// PluginSettings controls plugin installation.
type PluginSettings struct {
	// Dir holds one directory per installed plugin.
	Dir string `yaml:"dir"`

	// Git is the git executable.
	Git string `yaml:"git"`

	// GitTimeout bounds each git invocation.
	GitTimeout time.Duration `yaml:"git_timeout"`

	// Install allows missing plugins to be cloned. When false, plugins
	// that are not on disk are reported instead.
	Install bool `yaml:"install"`
}

// LoggingSettings controls the host log.
type LoggingSettings struct {
	Level string `yaml:"level"`

	// Format is "console" or "json".
	Format string `yaml:"format"`

	// File receives the log instead of stderr when set.
	File string `yaml:"file"`
}

// NotifySettings controls which diagnostics reach the terminal.
type NotifySettings struct {
	// Level is the minimum level printed.
	Level string `yaml:"level"`

	// Buffer enables asynchronous delivery with this many queued
	// diagnostics. Zero delivers synchronously.
	Buffer int `yaml:"buffer"`
}

// WatchSettings controls the configuration file watcher.
type WatchSettings struct {
	Enabled bool `yaml:"enabled"`

	// Debounce coalesces bursts of file events.
	Debounce time.Duration `yaml:"debounce"`

	// MinInterval is the minimum time between two change diagnostics.
	MinInterval time.Duration `yaml:"min_interval"`
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		Paths: PathsSettings{
			Init: DefaultInitPath(),
		},
		Startup: StartupSettings{
			IdleDelay:  10 * time.Millisecond,
			LuaTimeout: 5 * time.Second,
		},
		Plugins: PluginSettings{
			Dir:        DefaultPluginDir(),
			Git:        "git",
			GitTimeout: 60 * time.Second,
			Install:    true,
		},
		Logging: LoggingSettings{
			Level:  "warn",
			Format: "console",
		},
		Notify: NotifySettings{
			Level: "info",
		},
		Watch: WatchSettings{
			Enabled:     true,
			Debounce:    100 * time.Millisecond,
			MinInterval: 2 * time.Second,
		},
	}
}

// Sections returns the top-level setting names.
func Sections() []string {
	return []string{"paths", "startup", "plugins", "logging", "notify", "watch"}
}

var (
	logLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	logFormats = map[string]bool{"console": true, "json": true}
)

// Validate checks values that decoded but cannot be used.
func (s *Settings) Validate() error {
	checks := []struct {
		ok    bool
		path  string
		value any
		msg   string
	}{
		{s.Paths.Init != "", "paths.init", s.Paths.Init, "must not be empty"},
		{s.Startup.IdleDelay >= 0, "startup.idle_delay", s.Startup.IdleDelay, "must not be negative"},
		{s.Startup.LuaTimeout >= 0, "startup.lua_timeout", s.Startup.LuaTimeout, "must not be negative"},
		{s.Plugins.Dir != "", "plugins.dir", s.Plugins.Dir, "must not be empty"},
		{s.Plugins.Git != "", "plugins.git", s.Plugins.Git, "must not be empty"},
		{s.Plugins.GitTimeout > 0, "plugins.git_timeout", s.Plugins.GitTimeout, "must be positive"},
		{logLevels[s.Logging.Level], "logging.level", s.Logging.Level, "unknown level"},
		{logFormats[s.Logging.Format], "logging.format", s.Logging.Format, "must be console or json"},
		{logLevels[s.Notify.Level] && s.Notify.Level != "disabled", "notify.level", s.Notify.Level, "unknown level"},
		{s.Notify.Buffer >= 0, "notify.buffer", s.Notify.Buffer, "must not be negative"},
		{s.Watch.Debounce >= 0, "watch.debounce", s.Watch.Debounce, "must not be negative"},
		{s.Watch.MinInterval >= 0, "watch.min_interval", s.Watch.MinInterval, "must not be negative"},
	}
	for _, c := range checks {
		if !c.ok {
			return &ValidationError{Path: c.path, Value: c.value, Message: c.msg}
		}
	}
	return nil
}

// ConfigDir returns the keystage configuration directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "keystage")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "keystage")
	}
	return "keystage"
}

// DataDir returns the keystage data directory.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "keystage")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "keystage")
	}
	return filepath.Join("keystage", "data")
}

// DefaultInitPath returns the default configuration script path.
func DefaultInitPath() string {
	return filepath.Join(ConfigDir(), "init.lua")
}

// DefaultPluginDir returns the default plugin install directory.
func DefaultPluginDir() string {
	return filepath.Join(DataDir(), "plugins")
}

// DefaultSettingsPaths returns the settings files looked up when none is
// named, in order of preference.
func DefaultSettingsPaths() []string {
	dir := ConfigDir()
	return []string{
		filepath.Join(dir, "settings.toml"),
		filepath.Join(dir, "settings.yaml"),
		filepath.Join(dir, "settings.yml"),
	}
}
