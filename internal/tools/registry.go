package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores the options configured for each tool.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	configs   map[string]Options
}

// NewRegistry creates a registry that knows the built-in tools.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory, len(builtin)),
		configs:   make(map[string]Options),
	}
	for name, f := range builtin {
		r.factories[name] = f
	}
	return r
}

// Register adds or replaces the options type for a tool.
func (r *Registry) Register(tool string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tool] = factory
}

// Known reports whether tool has an options type.
func (r *Registry) Known(tool string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[tool]
	return ok
}

// Configure decodes raw for tool, validates it and stores the result.
// A later call for the same tool replaces the earlier configuration.
func (r *Registry) Configure(tool string, raw map[string]any) (Options, error) {
	r.mu.RLock()
	factory, ok := r.factories[tool]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}

	opts, err := decodeWith(tool, factory, raw)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.configs[tool] = opts
	r.mu.Unlock()
	return opts, nil
}

// Get returns the stored options for tool.
func (r *Registry) Get(tool string) (Options, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opts, ok := r.configs[tool]
	return opts, ok
}

// Names returns the configured tools in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Executables returns every external program named by the stored
// configurations, sorted and without duplicates.
func (r *Registry) Executables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, opts := range r.configs {
		out = append(out, opts.Executables()...)
	}
	return sortedUnique(out)
}
