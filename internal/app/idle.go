package app

import (
	"context"
	"time"
)

// IdleSource reports when the host first becomes idle after startup.
type IdleSource interface {
	// Idle returns a channel closed at the first idle opportunity.
	// The channel is never closed if ctx ends first.
	Idle(ctx context.Context) <-chan struct{}
}

// IdleFunc adapts a function to IdleSource.
type IdleFunc func(ctx context.Context) <-chan struct{}

// Idle implements IdleSource.
func (f IdleFunc) Idle(ctx context.Context) <-chan struct{} {
	return f(ctx)
}

// IdleTrigger fires once, delay after Idle is called.
type IdleTrigger struct {
	Delay time.Duration
}

// Idle implements IdleSource.
func (t IdleTrigger) Idle(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{})
	if t.Delay <= 0 {
		close(ch)
		return ch
	}

	go func() {
		timer := time.NewTimer(t.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			close(ch)
		case <-ctx.Done():
		}
	}()
	return ch
}

// Immediately is an IdleSource that is idle right away.
var Immediately IdleSource = IdleTrigger{}
