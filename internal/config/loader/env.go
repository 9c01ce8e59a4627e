package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
//
// A variable PREFIX_SECTION_SOME_KEY sets section.some_key. Only sections
// passed to NewEnvLoader are picked up so unrelated variables sharing the
// prefix are left alone.
type EnvLoader struct {
	prefix   string
	sections map[string]bool
	mapping  map[string]string
	environ  func() []string
}

// NewEnvLoader creates a loader for prefix (including the trailing
// underscore, e.g. "KEYSTAGE_") that accepts the given sections.
func NewEnvLoader(prefix string, sections ...string) *EnvLoader {
	l := &EnvLoader{
		prefix:   prefix,
		sections: make(map[string]bool, len(sections)),
		mapping:  make(map[string]string),
		environ:  os.Environ,
	}
	for _, s := range sections {
		l.sections[s] = true
	}
	return l
}

// AddMapping maps an environment variable to an explicit config path.
// Mapped variables do not need the prefix.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// Load reads environment variables and returns a configuration map.
// Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	env := make(map[string]string)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok {
			env[name] = value
		}
	}

	for name, value := range env {
		if _, mapped := l.mapping[name]; mapped || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		path, ok := l.envToPath(name)
		if !ok {
			continue
		}
		setByPath(config, path, parseValue(value))
	}

	// Explicit mappings win over derived paths.
	for name, path := range l.mapping {
		if value, ok := env[name]; ok {
			setByPath(config, path, parseValue(value))
		}
	}
	return config, nil
}

// envToPath converts KEYSTAGE_STARTUP_IDLE_DELAY to startup.idle_delay.
func (l *EnvLoader) envToPath(env string) (string, bool) {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok || key == "" || !l.sections[section] {
		return "", false
	}
	return section + "." + key, true
}

// parseValue converts a string into a bool, int, float or JSON value when
// it looks like one. Durations stay strings for the typed decoder.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
