package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/keystage/internal/config"
	"github.com/dshills/keystage/internal/plugin"
	"github.com/dshills/keystage/internal/tools"
)

func TestStageAddRunsHooks(t *testing.T) {
	script := `local stage = require("stage")
events = {}
stage.now(function()
  path = stage.add({
    "nvim-treesitter/nvim-treesitter-textobjects",
    depends = { "nvim-treesitter/nvim-treesitter" },
    hooks = {
      pre_install = function(ev) table.insert(events, ev.hook .. " " .. ev.name) end,
      post_install = function(ev) table.insert(events, ev.hook .. " " .. ev.path) end,
    },
  })
end)
`
	app := newTestApp(t, script)
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"install nvim-treesitter",
		"install nvim-treesitter-textobjects",
	}
	if diff := cmp.Diff(want, app.installer.calls); diff != "" {
		t.Errorf("installer calls mismatch (-want +got):\n%s", diff)
	}

	wantEvents := []string{
		"pre_install nvim-treesitter-textobjects",
		"post_install /site/nvim-treesitter-textobjects",
	}
	if diff := cmp.Diff(wantEvents, app.globalStrings(t, "events")); diff != "" {
		t.Errorf("hook events mismatch (-want +got):\n%s", diff)
	}

	if got := app.lua.GetGlobal("path"); got.String() != "/site/nvim-treesitter-textobjects" {
		t.Errorf("stage.add() returned %v", got)
	}
	if e, ok := app.Plugins().Get("nvim-treesitter-textobjects"); !ok || e.State != plugin.StateInstalled {
		t.Errorf("plugin entry = %+v, want installed", e)
	}
}

func TestStageAddErrors(t *testing.T) {
	tests := []struct {
		name string
		call string
		want string
	}{
		{"bad source", `stage.add("not a source")`, "plugin source must be"},
		{"bad argument", `stage.add(42)`, "expected source string or spec table"},
		{"unknown hook", `stage.add({ "a/b", hooks = { on_load = function() end } })`, "unknown plugin hook"},
		{"hook not a function", `stage.add({ "a/b", hooks = { post_install = "make" } })`, "expected function"},
		{"bad depends", `stage.add({ "a/b", depends = { 1 } })`, "depends"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := "local stage = require(\"stage\")\nstage.now(function() " + tt.call + " end)\n"
			app := newTestApp(t, script)

			err := app.Run(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Run() error = %v, want containing %q", err, tt.want)
			}
			if len(app.installer.calls) != 0 {
				t.Errorf("installer calls = %v, want none", app.installer.calls)
			}
		})
	}
}

func TestStageAddFailingHook(t *testing.T) {
	script := `local stage = require("stage")
order = {}
stage.now(function()
  stage.add({ "a/broken", hooks = { post_install = function() error("build failed") end } })
end)
stage.now(function() table.insert(order, "next") end)
`
	app := newTestApp(t, script)

	err := app.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "post_install hook") || !strings.Contains(err.Error(), "build failed") {
		t.Fatalf("Run() error = %v, want post_install hook failure", err)
	}
	if e, _ := app.Plugins().Get("broken"); e.State != plugin.StateError {
		t.Errorf("broken state = %v, want %v", e.State, plugin.StateError)
	}
	if diff := cmp.Diff([]string{"next"}, app.globalStrings(t, "order")); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(app.out.String(), "[error] plugin broken:") {
		t.Errorf("output missing plugin diagnostic:\n%s", app.out.String())
	}
}

func TestStageSetup(t *testing.T) {
	script := `local stage = require("stage")
stage.later(function()
  stage.setup("conform", {
    formatters_by_ft = { go = { "goimports", "gofmt" } },
    format_on_save = { timeout_ms = 800 },
  })
end)
stage.later(function()
  stage.setup("treesitter", { ensure_installed = { "go", "lua" }, highlihgt = { enable = true } })
end)
`
	app := newTestApp(t, script)

	err := app.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), tools.ErrInvalidOptions.Error()) {
		t.Fatalf("Run() error = %v, want invalid options", err)
	}

	opts, ok := app.Tools().Get("conform")
	if !ok {
		t.Fatal("conform not configured")
	}
	conform := opts.(*tools.Conform)
	if diff := cmp.Diff([]string{"goimports", "gofmt"}, conform.FormattersByFt["go"]); diff != "" {
		t.Errorf("formatters mismatch (-want +got):\n%s", diff)
	}
	if conform.FormatOnSave.TimeoutMs != 800 {
		t.Errorf("TimeoutMs = %d, want 800", conform.FormatOnSave.TimeoutMs)
	}
	if conform.FormatOnSave.LspFormat != "fallback" {
		t.Errorf("LspFormat = %q, want default fallback", conform.FormatOnSave.LspFormat)
	}

	if _, ok := app.Tools().Get("treesitter"); ok {
		t.Error("treesitter configured despite unknown key")
	}
	if !strings.Contains(app.out.String(), "highlihgt") {
		t.Errorf("output should name the unknown key:\n%s", app.out.String())
	}
}

func TestStageSetupArguments(t *testing.T) {
	tests := []struct {
		name string
		call string
		want string
	}{
		{"unknown tool", `stage.setup("telescope", {})`, "unknown tool"},
		{"list options", `stage.setup("lint", { "a", "b" })`, "named fields"},
		{"string options", `stage.setup("lint", "x")`, "must be a table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, "local stage = require(\"stage\")\n"+tt.call+"\n")
			err := app.Run(context.Background())
			if !errors.Is(err, ErrInitScript) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Run() error = %v, want script error containing %q", err, tt.want)
			}
		})
	}
}

func TestStageNotify(t *testing.T) {
	script := `local stage = require("stage")
stage.notify("hello")
stage.notify("careful", "warn")
`
	app := newTestApp(t, script)
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := app.out.String()
	for _, want := range []string{"[info] init.lua:2: hello", "[warn] init.lua:3: careful"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStageFileArgs(t *testing.T) {
	script := `local stage = require("stage")
has = stage.has_file_args()
files = stage.files()
`
	tests := []struct {
		name  string
		files []string
	}{
		{"none", nil},
		{"two", []string{"a.go", "b.go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, script, tt.files...)
			if err := app.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := app.lua.GetGlobal("has"); got != glua.LBool(len(tt.files) > 0) {
				t.Errorf("has_file_args() = %v", got)
			}
			if diff := cmp.Diff(tt.files, app.globalStrings(t, "files")); diff != "" {
				t.Errorf("files() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStageNestedRegistration(t *testing.T) {
	script := `local stage = require("stage")
order = {}
stage.now(function()
  table.insert(order, "outer")
  stage.now(function() table.insert(order, "inner") end)
  stage.later(function() table.insert(order, "deferred") end)
end)
stage.now(function() table.insert(order, "second") end)
`
	app := newTestApp(t, script)
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"outer", "second", "inner", "deferred"}
	if diff := cmp.Diff(want, app.globalStrings(t, "order")); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestStageAddIsNotTimedOut(t *testing.T) {
	script := `local stage = require("stage")
stage.now(function()
  stage.add("echasnovski/mini.nvim")
  done = true
end)
`
	inst := &slowInstaller{recordingInstaller: newRecordingInstaller(), delay: 300 * time.Millisecond}
	app := newTestAppWith(t, script, testSetup{
		installer: inst,
		settings: func(s *config.Settings) {
			s.Startup.LuaTimeout = 100 * time.Millisecond
		},
	})

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if app.lua.GetGlobal("done") != glua.LTrue {
		t.Error("task did not finish after a slow install")
	}
	if diff := cmp.Diff([]string{"install mini.nvim"}, inst.calls); diff != "" {
		t.Errorf("installer calls mismatch (-want +got):\n%s", diff)
	}
}

func TestStageAddStopsWithRun(t *testing.T) {
	script := `local stage = require("stage")
stage.now(function() stage.add("echasnovski/mini.nvim") end)
`
	app := newTestAppWith(t, script, testSetup{
		installer: &slowInstaller{recordingInstaller: newRecordingInstaller()},
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), context.Canceled.Error()) {
			t.Fatalf("Run() error = %v, want install cancelled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if e, _ := app.Plugins().Get("mini.nvim"); e.State != plugin.StateError {
		t.Errorf("mini.nvim state = %v, want %v", e.State, plugin.StateError)
	}
}
