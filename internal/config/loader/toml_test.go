package loader

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/settings.toml", `
[startup]
idle_delay = "20ms"

[plugins]
dir = "/tmp/plugins"
git_timeout = "30s"

[logging]
level = "debug"
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/settings.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := map[string]any{
		"startup": map[string]any{"idle_delay": "20ms"},
		"plugins": map[string]any{"dir": "/tmp/plugins", "git_timeout": "30s"},
		"logging": map[string]any{"level": "debug"},
	}
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestTOMLLoader_Missing(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(NewMemFS(), "/none.toml").Load()
	if err != nil || config != nil {
		t.Errorf("Load() = %v, %v, want nil, nil", config, err)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[startup\nidle_delay = 1\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load() error = %v, want ParseError", err)
	}
	if perr.Path != "/bad.toml" || perr.Line == 0 {
		t.Errorf("ParseError = %+v, want path and line", perr)
	}
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"settings.toml", "*loader.TOMLLoader"},
		{"settings.yaml", "*loader.YAMLLoader"},
		{"settings.YML", "*loader.YAMLLoader"},
		{"settings", "*loader.TOMLLoader"},
	}

	for _, tt := range tests {
		l := ForPath(NewMemFS(), tt.path)
		var got string
		switch l.(type) {
		case *TOMLLoader:
			got = "*loader.TOMLLoader"
		case *YAMLLoader:
			got = "*loader.YAMLLoader"
		}
		if got != tt.want {
			t.Errorf("ForPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"startup": map[string]any{"idle_delay": "10ms", "lua_timeout": "5s"},
		"logging": map[string]any{"level": "info"},
	}
	src := map[string]any{
		"startup": map[string]any{"idle_delay": "50ms"},
		"logging": "flat",
		"watch":   map[string]any{"enabled": true},
	}

	want := map[string]any{
		"startup": map[string]any{"idle_delay": "50ms", "lua_timeout": "5s"},
		"logging": "flat",
		"watch":   map[string]any{"enabled": true},
	}
	if diff := cmp.Diff(want, DeepMerge(dst, src)); diff != "" {
		t.Errorf("DeepMerge() mismatch (-want +got):\n%s", diff)
	}
	if got := DeepMerge(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("DeepMerge(nil, nil) = %v, want empty map", got)
	}
}
