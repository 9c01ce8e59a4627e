package plugin

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Hook lifecycle names.
const (
	HookPreInstall   = "pre_install"
	HookPostInstall  = "post_install"
	HookPreCheckout  = "pre_checkout"
	HookPostCheckout = "post_checkout"
)

// HookEvent is passed to lifecycle hooks.
type HookEvent struct {
	Hook   string // Lifecycle name (e.g., "post_install")
	Name   string // Plugin name
	Path   string // Install directory
	Source string // Expanded source URL
}

// HookFunc is a lifecycle callback.
type HookFunc func(ev HookEvent) error

// Hooks holds optional lifecycle callbacks.
type Hooks struct {
	PreInstall   HookFunc
	PostInstall  HookFunc
	PreCheckout  HookFunc
	PostCheckout HookFunc
}

// Set assigns a hook by its lifecycle name.
func (h *Hooks) Set(name string, fn HookFunc) error {
	switch name {
	case HookPreInstall:
		h.PreInstall = fn
	case HookPostInstall:
		h.PostInstall = fn
	case HookPreCheckout:
		h.PreCheckout = fn
	case HookPostCheckout:
		h.PostCheckout = fn
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHook, name)
	}
	return nil
}

// Get returns the hook registered under a lifecycle name.
func (h Hooks) Get(name string) HookFunc {
	switch name {
	case HookPreInstall:
		return h.PreInstall
	case HookPostInstall:
		return h.PostInstall
	case HookPreCheckout:
		return h.PreCheckout
	case HookPostCheckout:
		return h.PostCheckout
	default:
		return nil
	}
}

// Spec describes a plugin to install.
type Spec struct {
	Source   string   // "owner/repo" or a git URL
	Name     string   // Directory name; defaults to the repository name
	Checkout string   // Branch, tag or commit; empty keeps the default branch
	Depends  []string // Sources of plugins that must be added first
	Hooks    Hooks
}

// DefaultHost is prepended to owner/repo sources.
const DefaultHost = "https://github.com/"

// shortSourcePattern matches owner/repo locators.
var shortSourcePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// namePattern validates plugin directory names.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ExpandSource turns an owner/repo locator into a full URL.
// Full URLs and scp-style git addresses are returned unchanged.
func ExpandSource(source string) (string, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return "", ErrMissingSource
	case strings.Contains(source, "://"), strings.HasPrefix(source, "git@"):
		return source, nil
	case shortSourcePattern.MatchString(source):
		return DefaultHost + source, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
}

// NameFromSource derives a plugin name from the last path element of a source.
func NameFromSource(source string) string {
	source = strings.TrimSuffix(strings.TrimRight(source, "/"), ".git")
	if i := strings.LastIndex(source, ":"); i >= 0 && !strings.Contains(source, "://") {
		source = source[i+1:]
	}
	return path.Base(source)
}

// Normalize returns a copy with the source expanded and the name filled in.
func (s Spec) Normalize() (Spec, error) {
	url, err := ExpandSource(s.Source)
	if err != nil {
		return Spec{}, err
	}

	out := s
	out.Source = url
	if out.Name == "" {
		out.Name = NameFromSource(url)
	}
	if out.Depends != nil {
		out.Depends = append([]string(nil), s.Depends...)
	}
	if err := out.Validate(); err != nil {
		return Spec{}, err
	}
	return out, nil
}

// Validate checks that the spec is well formed.
func (s Spec) Validate() error {
	if _, err := ExpandSource(s.Source); err != nil {
		return err
	}
	if s.Name != "" && !namePattern.MatchString(s.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, s.Name)
	}
	if strings.HasPrefix(s.Checkout, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidCheckout, s.Checkout)
	}
	for _, dep := range s.Depends {
		if _, err := ExpandSource(dep); err != nil {
			return fmt.Errorf("dependency of %q: %w", s.Source, err)
		}
	}
	return nil
}

// String returns a short representation of the spec.
func (s Spec) String() string {
	name := s.Name
	if name == "" {
		name = NameFromSource(s.Source)
	}
	if s.Checkout != "" {
		return name + "@" + s.Checkout
	}
	return name
}
