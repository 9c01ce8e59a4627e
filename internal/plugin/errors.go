package plugin

import "errors"

// Plugin errors.
var (
	// ErrPluginNotFound is returned when a plugin is not registered.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrMissingSource is returned when a spec has no source.
	ErrMissingSource = errors.New("plugin source is required")

	// ErrInvalidSource is returned when a source is neither owner/repo nor a URL.
	ErrInvalidSource = errors.New("plugin source must be owner/repo or a git URL")

	// ErrInvalidName is returned when a plugin name is not a valid directory name.
	ErrInvalidName = errors.New("invalid plugin name")

	// ErrInvalidCheckout is returned when a checkout could be read as a git option.
	ErrInvalidCheckout = errors.New("invalid plugin checkout")

	// ErrUnknownHook is returned for hook names outside the lifecycle.
	ErrUnknownHook = errors.New("unknown plugin hook")

	// ErrCyclicDependency is returned when plugins depend on each other.
	ErrCyclicDependency = errors.New("cyclic plugin dependency detected")

	// ErrNoInstaller is returned when a registry has no installer.
	ErrNoInstaller = errors.New("plugin installer is not configured")

	// ErrInstallDisabled is returned by an offline installer.
	ErrInstallDisabled = errors.New("plugin installation is disabled")
)

// HookError wraps a failure raised by a lifecycle hook.
type HookError struct {
	Plugin string
	Hook   string
	Err    error
}

func (e *HookError) Error() string {
	return "plugin " + e.Plugin + ": " + e.Hook + " hook: " + e.Err.Error()
}

func (e *HookError) Unwrap() error {
	return e.Err
}
