package tools

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"
)

// Options is the typed configuration of a single tool.
type Options interface {
	// Tool returns the tool name the options belong to.
	Tool() string

	// Validate checks values after decoding and defaulting.
	Validate() error

	// Executables lists external programs the configuration invokes.
	Executables() []string
}

// defaulter is implemented by options with non-zero defaults.
type defaulter interface {
	setDefaults()
}

// Factory creates an empty Options value to decode into.
type Factory func() Options

var builtin = map[string]Factory{
	"treesitter": func() Options { return &Treesitter{} },
	"lsp":        func() Options { return &LSP{} },
	"lint":       func() Options { return &Lint{} },
	"conform":    func() Options { return &Conform{} },
	"snippets":   func() Options { return &Snippets{} },
	"completion": func() Options { return &Completion{} },
	"notes":      func() Options { return &Notes{} },
}

// Decode decodes raw into a fresh Options for tool, applies defaults and
// validates the result.
func Decode(tool string, raw map[string]any) (Options, error) {
	factory, ok := builtin[tool]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	return decodeWith(tool, factory, raw)
}

func decodeWith(tool string, factory Factory, raw map[string]any) (Options, error) {
	opts := factory()
	if d, ok := opts.(defaulter); ok {
		d.setDefaults()
	}
	if len(raw) > 0 {
		if err := decodeStrict(raw, opts); err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidOptions, tool, err)
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// decodeStrict round-trips raw through YAML so the decoder can reject
// keys the target struct does not declare.
func decodeStrict(raw map[string]any, out any) error {
	plain, err := plainValue(raw, "")
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(plain)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// plainValue checks that v only holds data, not functions or host objects.
func plainValue(v any, path string) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int, int64, float64, []string:
		return x, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			p, err := plainValue(item, fmt.Sprintf("%s[%d]", path, i+1))
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	case map[string]any:
		// An empty Lua table is ambiguous between list and map.
		if len(x) == 0 {
			return nil, nil
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			p, err := plainValue(item, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	default:
		where := path
		if where == "" {
			where = "options"
		}
		return nil, fmt.Errorf("%s: unsupported value of type %s", where, reflect.TypeOf(v))
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
