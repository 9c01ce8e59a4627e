// Package notify delivers host diagnostics to interested observers.
//
// Everything the host wants the user to see goes through a Notifier: failed
// scheduled actions, plugin install problems, messages from the
// configuration script and configuration change hints. Observers receive
// Diagnostics synchronously by default or from a single delivery goroutine
// when async delivery is enabled.
package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a diagnostic.
type Level int

const (
	// LevelDebug is for detail only useful when troubleshooting.
	LevelDebug Level = iota
	// LevelInfo is for routine messages.
	LevelInfo
	// LevelWarn is for problems that did not stop anything.
	LevelWarn
	// LevelError is for failures.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name. Unknown names return LevelInfo and false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Diagnostic is a single message for the user.
type Diagnostic struct {
	Level Level

	// Source identifies what produced the diagnostic, e.g. "schedule",
	// "plugin" or a script location such as "init.lua:12".
	Source string

	Message string

	// Err is the underlying error, if any.
	Err error

	Time time.Time
}

// String formats the diagnostic for a terminal line.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(d.Level.String())
	b.WriteString("]")
	if d.Source != "" {
		b.WriteString(" ")
		b.WriteString(d.Source)
		b.WriteString(":")
	}
	if d.Message != "" {
		b.WriteString(" ")
		b.WriteString(d.Message)
	}
	if d.Err != nil && d.Err.Error() != d.Message {
		if d.Message != "" {
			b.WriteString(":")
		}
		b.WriteString(" ")
		b.WriteString(d.Err.Error())
	}
	return b.String()
}

// Observer is called for each delivered diagnostic.
type Observer func(d Diagnostic)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type subscriber struct {
	min      Level
	observer Observer
}

// Notifier fans diagnostics out to observers.
type Notifier struct {
	mu sync.RWMutex

	subscribers map[uint64]subscriber
	nextID      uint64

	now func() time.Time

	// Panics raised by observers are passed here instead of propagating.
	onPanic func(recovered any)

	async  bool
	buffer chan Diagnostic
	done   chan struct{}
	wg     sync.WaitGroup

	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous delivery with a buffer of the given size.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Diagnostic, bufferSize)
		}
	}
}

// WithClock sets the clock used to stamp diagnostics without a Time.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

// WithPanicHandler is called with the value recovered from a panicking
// observer.
func WithPanicHandler(fn func(recovered any)) Option {
	return func(n *Notifier) {
		n.onPanic = fn
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		subscribers: make(map[uint64]subscriber),
		now:         time.Now,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}
	return n
}

// Subscribe registers an observer for every diagnostic.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribeLevel(LevelDebug, observer)
}

// SubscribeLevel registers an observer for diagnostics at min or above.
func (n *Notifier) SubscribeLevel(min Level, observer Observer) *Subscription {
	if observer == nil {
		return &Subscription{}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subscribers[id] = subscriber{min: min, observer: observer}
	return &Subscription{id: id, notifier: n}
}

// Notify delivers d. Diagnostics sent after Close are dropped.
func (n *Notifier) Notify(d Diagnostic) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if d.Time.IsZero() {
		d.Time = n.now()
	}

	if n.async {
		select {
		case n.buffer <- d:
		case <-n.done:
		}
		return
	}
	n.deliver(d)
}

// Debug sends a debug diagnostic.
func (n *Notifier) Debug(source, format string, args ...any) {
	n.Notify(Diagnostic{Level: LevelDebug, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Info sends an info diagnostic.
func (n *Notifier) Info(source, format string, args ...any) {
	n.Notify(Diagnostic{Level: LevelInfo, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Warn sends a warning diagnostic.
func (n *Notifier) Warn(source, format string, args ...any) {
	n.Notify(Diagnostic{Level: LevelWarn, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Error sends an error diagnostic carrying err.
func (n *Notifier) Error(source string, err error) {
	if err == nil {
		return
	}
	n.Notify(Diagnostic{Level: LevelError, Source: source, Message: err.Error(), Err: err})
}

// Close stops async delivery after draining buffered diagnostics.
// It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subscribers, id)
}

// deliver calls matching observers in subscription order, outside the lock.
func (n *Notifier) deliver(d Diagnostic) {
	n.mu.RLock()
	ids := make([]uint64, 0, len(n.subscribers))
	for id, sub := range n.subscribers {
		if d.Level >= sub.min {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, n.subscribers[id].observer)
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		n.call(obs, d)
	}
}

func (n *Notifier) call(obs Observer, d Diagnostic) {
	defer func() {
		if r := recover(); r != nil && n.onPanic != nil {
			n.onPanic(r)
		}
	}()
	obs(d)
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case d := <-n.buffer:
			n.deliver(d)
		case <-n.done:
			for {
				select {
				case d := <-n.buffer:
					n.deliver(d)
				default:
					return
				}
			}
		}
	}
}
