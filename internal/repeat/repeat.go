// Package repeat runs one action a fixed number of times with a fixed delay
// between runs, on a timer.Gateway.
package repeat

import (
	"sync/atomic"
	"time"

	"github.com/opencode-ai/taskutils/internal/sequence"
	"github.com/opencode-ai/taskutils/internal/timer"
)

// Config describes a counted loop.
type Config struct {
	// Action runs once per iteration. A nil Action makes Run a no-op.
	Action sequence.Action

	// Iterations is how many times Action runs. Zero or less runs nothing.
	Iterations int

	// Delay separates iterations, and the last iteration from OnComplete.
	// The first iteration is always scheduled with zero delay.
	Delay time.Duration

	// Async selects the async queue for the whole run.
	Async bool

	// OnComplete runs once after the final iteration, unless the loop was
	// cancelled or an iteration failed.
	OnComplete sequence.Action
}

// Handle controls a running loop. A nil Handle is inert.
type Handle struct {
	cancelled atomic.Bool
	remaining atomic.Int64
}

// Cancel stops the loop before its next iteration.
func (h *Handle) Cancel() {
	h.SetCancelled(true)
}

// SetCancelled sets or clears the cancellation flag. Clearing it only helps
// if the loop has not yet observed it.
func (h *Handle) SetCancelled(cancelled bool) {
	if h == nil {
		return
	}
	h.cancelled.Store(cancelled)
}

// Cancelled reports whether the cancellation flag is set.
func (h *Handle) Cancelled() bool {
	if h == nil {
		return false
	}
	return h.cancelled.Load()
}

// Remaining returns how many iterations have not run yet.
func (h *Handle) Remaining() int {
	if h == nil {
		return 0
	}
	return int(h.remaining.Load())
}

type loop struct {
	gateway timer.Gateway
	config  Config
	handle  *Handle
}

// Run starts the loop and returns its handle. It returns nil when there is no
// action to run.
func Run(gateway timer.Gateway, config Config) *Handle {
	if config.Action == nil {
		return nil
	}

	h := &Handle{}
	if config.Iterations <= 0 {
		return h
	}
	h.remaining.Store(int64(config.Iterations))

	l := &loop{gateway: gateway, config: config, handle: h}
	l.schedule(l.iterate, 0)
	return h
}

func (l *loop) schedule(cb timer.Callback, delay time.Duration) {
	timer.Schedule(l.gateway, l.config.Async, cb, delay)
}

func (l *loop) iterate() error {
	if l.handle.Cancelled() {
		return nil
	}
	if err := l.config.Action(); err != nil {
		return err
	}

	if l.handle.remaining.Add(-1) > 0 {
		l.schedule(l.iterate, l.config.Delay)
		return nil
	}
	if l.config.OnComplete != nil {
		l.schedule(timer.Callback(l.config.OnComplete), l.config.Delay)
	}
	return nil
}
