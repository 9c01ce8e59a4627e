package tools

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryConfigure(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Configure("lint", map[string]any{"linters_by_ft": map[string]any{"go": []any{"golangci-lint"}}}); err != nil {
		t.Fatalf("Configure(lint) error = %v", err)
	}
	if _, err := r.Configure("conform", map[string]any{"formatters_by_ft": map[string]any{"go": []any{"gofumpt", "goimports"}}}); err != nil {
		t.Fatalf("Configure(conform) error = %v", err)
	}
	if _, err := r.Configure("lsp", map[string]any{"servers": map[string]any{"gopls": map[string]any{"cmd": []any{"gopls", "serve"}}}}); err != nil {
		t.Fatalf("Configure(lsp) error = %v", err)
	}

	if diff := cmp.Diff([]string{"conform", "lint", "lsp"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	want := []string{"gofumpt", "goimports", "golangci-lint", "gopls"}
	if diff := cmp.Diff(want, r.Executables()); diff != "" {
		t.Errorf("Executables() mismatch (-want +got):\n%s", diff)
	}

	opts, ok := r.Get("lint")
	if !ok || opts.Tool() != "lint" {
		t.Errorf("Get(lint) = %v, %v", opts, ok)
	}
}

func TestRegistryConfigureFailureKeepsPrevious(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Configure("completion", map[string]any{"provider": "codeium"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Configure("completion", map[string]any{"provider": ""}); err == nil {
		t.Fatal("Configure() with empty provider should fail")
	}

	opts, _ := r.Get("completion")
	if got := opts.(*Completion).Provider; got != "codeium" {
		t.Errorf("Provider = %q, want previous configuration", got)
	}
}

func TestRegistryUnknownAndRegister(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Configure("telescope", nil); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("Configure() error = %v, want %v", err, ErrUnknownTool)
	}
	if r.Known("telescope") {
		t.Error("Known(telescope) = true before Register")
	}

	r.Register("telescope", func() Options { return &Snippets{} })
	if !r.Known("telescope") {
		t.Error("Known(telescope) = false after Register")
	}
	if _, err := r.Configure("telescope", nil); err != nil {
		t.Errorf("Configure() after Register error = %v", err)
	}
}
