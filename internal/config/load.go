package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/dshills/keystage/internal/config/loader"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "KEYSTAGE_"

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	fs       loader.FileSystem
	env      loader.Loader
	defaults func() *Settings
}

// WithFileSystem reads settings files through fsys.
func WithFileSystem(fsys loader.FileSystem) LoadOption {
	return func(o *loadOptions) {
		if fsys != nil {
			o.fs = fsys
		}
	}
}

// WithEnvLoader replaces the environment source. Pass nil to ignore the
// environment.
func WithEnvLoader(l loader.Loader) LoadOption {
	return func(o *loadOptions) {
		o.env = l
	}
}

// NewEnvLoader returns the loader for KEYSTAGE_* variables.
func NewEnvLoader() *loader.EnvLoader {
	l := loader.NewEnvLoader(EnvPrefix, Sections()...)
	l.AddMapping("KEYSTAGE_LOG_LEVEL", "logging.level")
	l.AddMapping("KEYSTAGE_INIT", "paths.init")
	return l
}

// Load builds Settings from defaults, the settings file at path and the
// environment. An empty path tries DefaultSettingsPaths and accepts none
// existing; a named path must exist.
func Load(path string, opts ...LoadOption) (*Settings, error) {
	o := loadOptions{
		fs:       loader.DefaultFS(),
		env:      NewEnvLoader(),
		defaults: Defaults,
	}
	for _, opt := range opts {
		opt(&o)
	}

	file, err := o.loadFile(path)
	if err != nil {
		return nil, err
	}

	merged := loader.DeepMerge(nil, file)
	if o.env != nil {
		env, err := o.env.Load()
		if err != nil {
			return nil, fmt.Errorf("reading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, env)
	}

	settings := o.defaults()
	if err := decode(merged, settings); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (o *loadOptions) loadFile(path string) (map[string]any, error) {
	if path != "" {
		if _, err := o.fs.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return nil, err
		}
		return loader.ForPath(o.fs, path).Load()
	}

	for _, candidate := range DefaultSettingsPaths() {
		if _, err := o.fs.Stat(candidate); err == nil {
			return loader.ForPath(o.fs, candidate).Load()
		}
	}
	return nil, nil
}

// decode copies raw over the fields of out, rejecting unknown keys.
func decode(raw map[string]any, out *Settings) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding settings: %w", err)
	}
	return nil
}
