package notify

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   Level
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"WARN", LevelWarn, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"", LevelInfo, true},
		{"loud", LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDiagnostic_String(t *testing.T) {
	tests := []struct {
		d    Diagnostic
		want string
	}{
		{Diagnostic{Level: LevelInfo, Source: "plugin", Message: "installed"}, "[info] plugin: installed"},
		{Diagnostic{Level: LevelError, Source: "init.lua:3", Err: errors.New("boom")}, "[error] init.lua:3: boom"},
		{Diagnostic{Level: LevelError, Message: "boom", Err: errors.New("boom")}, "[error] boom"},
		{Diagnostic{Level: LevelWarn, Message: "install failed", Err: errors.New("exit 128")}, "[warn] install failed: exit 128"},
	}

	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestNotifier_SubscribeOrder(t *testing.T) {
	n := New()
	defer n.Close()

	var got []string
	n.Subscribe(func(d Diagnostic) { got = append(got, "first:"+d.Message) })
	n.Subscribe(func(d Diagnostic) { got = append(got, "second:"+d.Message) })

	n.Info("test", "hello %d", 1)

	want := []string{"first:hello 1", "second:hello 1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestNotifier_SubscribeLevel(t *testing.T) {
	n := New()
	defer n.Close()

	var all, warnings atomic.Int32
	n.Subscribe(func(Diagnostic) { all.Add(1) })
	n.SubscribeLevel(LevelWarn, func(Diagnostic) { warnings.Add(1) })

	n.Debug("test", "d")
	n.Info("test", "i")
	n.Warn("test", "w")
	n.Error("test", errors.New("e"))
	n.Error("test", nil)

	if all.Load() != 4 {
		t.Errorf("all observer received %d, want 4", all.Load())
	}
	if warnings.Load() != 2 {
		t.Errorf("warn observer received %d, want 2", warnings.Load())
	}
}

func TestNotifier_StampsTime(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n := New(WithClock(func() time.Time { return fixed }))
	defer n.Close()

	var got Diagnostic
	n.Subscribe(func(d Diagnostic) { got = d })

	n.Warn("watcher", "changed")
	if !got.Time.Equal(fixed) {
		t.Errorf("Time = %v, want %v", got.Time, fixed)
	}

	explicit := fixed.Add(time.Hour)
	n.Notify(Diagnostic{Level: LevelInfo, Time: explicit})
	if !got.Time.Equal(explicit) {
		t.Errorf("Time = %v, want %v", got.Time, explicit)
	}
}

func TestNotifier_ObserverPanic(t *testing.T) {
	var recovered atomic.Value
	n := New(WithPanicHandler(func(r any) { recovered.Store(r) }))
	defer n.Close()

	var after atomic.Bool
	n.Subscribe(func(Diagnostic) { panic("observer broke") })
	n.Subscribe(func(Diagnostic) { after.Store(true) })

	n.Info("test", "x")

	if !after.Load() {
		t.Error("observer after panicking one was not called")
	}
	if recovered.Load() != "observer broke" {
		t.Errorf("recovered = %v, want observer broke", recovered.Load())
	}
}

func TestSubscription_Unsubscribe(t *testing.T) {
	n := New()
	defer n.Close()

	var count atomic.Int32
	sub := n.Subscribe(func(Diagnostic) { count.Add(1) })

	n.Info("test", "one")
	sub.Unsubscribe()
	n.Info("test", "two")
	sub.Unsubscribe()

	if count.Load() != 1 {
		t.Errorf("count = %d, want 1", count.Load())
	}

	var nilSub *Subscription
	nilSub.Unsubscribe()
	n.Subscribe(nil).Unsubscribe()
}

func TestNotifier_Async(t *testing.T) {
	n := New(WithAsync(16))

	var mu sync.Mutex
	var got []string
	n.Subscribe(func(d Diagnostic) {
		mu.Lock()
		got = append(got, d.Message)
		mu.Unlock()
	})

	for _, msg := range []string{"a", "b", "c"} {
		n.Info("test", "%s", msg)
	}
	n.Close()

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("async delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestNotifier_AfterClose(t *testing.T) {
	n := New()
	var count atomic.Int32
	n.Subscribe(func(Diagnostic) { count.Add(1) })

	n.Close()
	n.Close()
	n.Info("test", "dropped")

	if count.Load() != 0 {
		t.Errorf("count = %d after Close, want 0", count.Load())
	}
}
