package plugin

import (
	"context"
	"fmt"
)

// Installer places plugins on disk. The registry decides when to call it;
// the installer owns how.
type Installer interface {
	// Path returns the install directory for the spec.
	Path(spec Spec) string

	// Exists reports whether the plugin is already installed.
	Exists(spec Spec) bool

	// Install fetches the plugin and checks out spec.Checkout if set.
	Install(ctx context.Context, spec Spec) error

	// Checkout moves an installed plugin to spec.Checkout and reports
	// whether the working tree changed.
	Checkout(ctx context.Context, spec Spec) (bool, error)
}

// Entry is a registered plugin.
type Entry struct {
	Spec  Spec
	State State
	Path  string
	Err   error
}

// EventHandler handles registry events.
// Panics in handlers are recovered.
type EventHandler func(event Event)

// Event represents a registry event.
type Event struct {
	Type   EventType
	Plugin string
	Error  error
}

// EventType is the type of registry event.
type EventType int

const (
	// EventPluginAdded is emitted when a spec is registered.
	EventPluginAdded EventType = iota
	// EventPluginInstalled is emitted after a fresh install.
	EventPluginInstalled
	// EventPluginCheckedOut is emitted when a checkout changed the plugin.
	EventPluginCheckedOut
	// EventPluginError is emitted when installing or a hook failed.
	EventPluginError
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventPluginAdded:
		return "added"
	case EventPluginInstalled:
		return "installed"
	case EventPluginCheckedOut:
		return "checked-out"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// Registry tracks added plugins in the order they were added.
// It is driven from the startup sequencing goroutine and is not safe for
// concurrent use.
type Registry struct {
	installer Installer

	plugins map[string]*Entry
	order   []string

	// adding holds names whose dependencies are being resolved
	adding map[string]bool

	handlers []EventHandler
}

// NewRegistry creates a registry that installs through installer.
func NewRegistry(installer Installer) *Registry {
	return &Registry{
		installer: installer,
		plugins:   make(map[string]*Entry),
		adding:    make(map[string]bool),
	}
}

// Add registers a plugin, adding its dependencies first, and makes sure it
// is installed. Adding an already installed plugin only performs a
// checkout when the spec names one.
func (r *Registry) Add(ctx context.Context, spec Spec) error {
	if r.installer == nil {
		return ErrNoInstaller
	}
	return r.add(ctx, spec, true)
}

// Declare registers a plugin and its dependencies without touching the
// disk or running hooks.
func (r *Registry) Declare(spec Spec) error {
	return r.add(context.Background(), spec, false)
}

func (r *Registry) add(ctx context.Context, spec Spec, install bool) error {
	spec, err := spec.Normalize()
	if err != nil {
		return err
	}
	name := spec.Name

	if r.adding[name] {
		return fmt.Errorf("%w: %s", ErrCyclicDependency, name)
	}
	r.adding[name] = true
	defer delete(r.adding, name)

	for _, dep := range spec.Depends {
		depName := NameFromSource(dep)
		if r.adding[depName] {
			return fmt.Errorf("%w: %s -> %s", ErrCyclicDependency, name, depName)
		}
		if _, known := r.plugins[depName]; known {
			continue
		}
		if err := r.add(ctx, Spec{Source: dep}, install); err != nil {
			return fmt.Errorf("plugin %q: dependency %q: %w", name, depName, err)
		}
	}

	entry, known := r.plugins[name]
	if !known {
		entry = &Entry{Spec: spec, State: StateRegistered}
		if r.installer != nil {
			entry.Path = r.installer.Path(spec)
		}
		r.plugins[name] = entry
		r.order = append(r.order, name)
		r.emit(Event{Type: EventPluginAdded, Plugin: name})
	} else {
		entry.Spec = spec
	}

	if !install {
		return nil
	}

	if err := r.ensure(ctx, entry); err != nil {
		entry.State = StateError
		entry.Err = err
		r.emit(Event{Type: EventPluginError, Plugin: name, Error: err})
		return err
	}
	entry.State = StateInstalled
	entry.Err = nil
	return nil
}

// ensure installs a missing plugin or checks out the requested target.
func (r *Registry) ensure(ctx context.Context, entry *Entry) error {
	spec := entry.Spec
	ev := HookEvent{Name: spec.Name, Path: entry.Path, Source: spec.Source}

	if !r.installer.Exists(spec) {
		if err := runHook(spec, HookPreInstall, ev); err != nil {
			return err
		}
		if err := r.installer.Install(ctx, spec); err != nil {
			return fmt.Errorf("installing plugin %q: %w", spec.Name, err)
		}
		r.emit(Event{Type: EventPluginInstalled, Plugin: spec.Name})
		return runHook(spec, HookPostInstall, ev)
	}

	if spec.Checkout == "" {
		return nil
	}
	if err := runHook(spec, HookPreCheckout, ev); err != nil {
		return err
	}
	changed, err := r.installer.Checkout(ctx, spec)
	if err != nil {
		return fmt.Errorf("checking out %q for plugin %q: %w", spec.Checkout, spec.Name, err)
	}
	if !changed {
		return nil
	}
	r.emit(Event{Type: EventPluginCheckedOut, Plugin: spec.Name})
	return runHook(spec, HookPostCheckout, ev)
}

func runHook(spec Spec, hook string, ev HookEvent) error {
	fn := spec.Hooks.Get(hook)
	if fn == nil {
		return nil
	}
	ev.Hook = hook
	if err := fn(ev); err != nil {
		return &HookError{Plugin: spec.Name, Hook: hook, Err: err}
	}
	return nil
}

// Get returns a plugin entry by name.
func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.plugins[name]
	return e, ok
}

// List returns all entries in the order they were added.
func (r *Registry) List() []*Entry {
	result := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.plugins[name])
	}
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	return len(r.plugins)
}

// Errors returns plugins in error state with their errors.
func (r *Registry) Errors() map[string]error {
	errs := make(map[string]error)
	for name, e := range r.plugins {
		if e.State == StateError && e.Err != nil {
			errs[name] = e.Err
		}
	}
	return errs
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (r *Registry) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	r.handlers = append(r.handlers, handler)
	index := len(r.handlers) - 1

	return func() {
		if index < len(r.handlers) {
			r.handlers[index] = nil
		}
	}
}

// emit sends an event to all handlers, recovering handler panics.
func (r *Registry) emit(event Event) {
	for _, handler := range r.handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				_ = recover()
			}()
			handler(event)
		}()
	}
}
