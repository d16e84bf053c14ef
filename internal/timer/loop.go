package timer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/opencode-ai/taskutils/internal/logging"
	"github.com/rs/zerolog"
)

// Event loop errors.
var (
	ErrLoopAlreadyRunning = errors.New("event loop already running")
)

// ErrorPolicy decides what the event loop does when a callback fails.
type ErrorPolicy string

const (
	// ErrorPolicyContinue logs the failure and keeps draining the queues.
	ErrorPolicyContinue ErrorPolicy = "continue"
	// ErrorPolicyStop returns the failure from Run.
	ErrorPolicyStop ErrorPolicy = "stop"
)

// ParseErrorPolicy maps a config value to a policy, defaulting to continue.
func ParseErrorPolicy(value string) ErrorPolicy {
	if ErrorPolicy(strings.ToLower(strings.TrimSpace(value))) == ErrorPolicyStop {
		return ErrorPolicyStop
	}
	return ErrorPolicyContinue
}

// Config contains event loop configuration.
type Config struct {
	// OnError selects the failure policy.
	// Default: continue.
	OnError ErrorPolicy

	// Now returns the current time.
	// Default: time.Now.
	Now func() time.Time
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		OnError: ErrorPolicyContinue,
		Now:     time.Now,
	}
}

// Stats contains event loop statistics.
type Stats struct {
	// Running indicates if Run is active.
	Running bool

	// PendingSync is the number of callbacks waiting on the sync queue.
	PendingSync int

	// PendingAsync is the number of callbacks waiting on the async queue.
	PendingAsync int

	// Executed is the total number of callbacks invoked.
	Executed int64

	// Failed is the number of callbacks that returned an error.
	Failed int64

	// LastError is the message of the most recent callback failure.
	LastError string
}

// EventLoop is a Gateway host that runs every callback on the goroutine that
// called Run. Scheduling is safe from any goroutine.
type EventLoop struct {
	config Config
	logger zerolog.Logger

	mu      sync.Mutex
	pending pending
	running bool
	wake    chan struct{}
	stats   Stats
}

// NewEventLoop creates a new EventLoop.
func NewEventLoop(config Config) *EventLoop {
	if config.OnError == "" {
		config.OnError = DefaultConfig().OnError
	}
	if config.Now == nil {
		config.Now = DefaultConfig().Now
	}

	return &EventLoop{
		config: config,
		logger: logging.Component("event-loop"),
		wake:   make(chan struct{}, 1),
	}
}

// ScheduleSync implements Gateway.
func (l *EventLoop) ScheduleSync(cb Callback, delay time.Duration) {
	l.schedule(QueueSync, cb, delay)
}

// ScheduleAsync implements Gateway.
func (l *EventLoop) ScheduleAsync(cb Callback, delay time.Duration) {
	l.schedule(QueueAsync, cb, delay)
}

// Post schedules cb on the sync queue for the next turn.
func (l *EventLoop) Post(cb Callback) {
	l.schedule(QueueSync, cb, 0)
}

func (l *EventLoop) schedule(q Queue, cb Callback, delay time.Duration) {
	if cb == nil {
		return
	}
	if delay < 0 {
		delay = 0
	}

	l.mu.Lock()
	l.pending.push(l.config.Now().Add(delay), q, cb)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains both queues until nothing is pending or ctx is done. Callbacks
// run one at a time on the calling goroutine.
func (l *EventLoop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrLoopAlreadyRunning
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	l.logger.Debug().
		Str("on_error", string(l.config.OnError)).
		Msg("event loop starting")

	for {
		if ctx.Err() != nil {
			l.logger.Debug().Msg("event loop interrupted")
			return nil
		}

		l.mu.Lock()
		next := l.pending.peek()
		if next == nil {
			l.mu.Unlock()
			l.logger.Debug().Msg("event loop idle")
			return nil
		}

		wait := next.due.Sub(l.config.Now())
		if wait <= 0 {
			e := l.pending.pop()
			l.mu.Unlock()

			if err := l.invoke(e); err != nil {
				return err
			}
			continue
		}
		l.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-l.wake:
			t.Stop()
		case <-t.C:
		}
	}
}

// invoke runs one callback. It returns an error only under the stop policy.
func (l *EventLoop) invoke(e *entry) error {
	err := e.cb()

	l.mu.Lock()
	l.stats.Executed++
	if err != nil {
		l.stats.Failed++
		l.stats.LastError = err.Error()
	}
	l.mu.Unlock()

	if err == nil {
		return nil
	}
	if l.config.OnError == ErrorPolicyStop {
		return err
	}

	l.logger.Error().
		Err(err).
		Str("queue", e.queue.String()).
		Msg("callback failed")
	return nil
}

// Stats returns current event loop statistics.
func (l *EventLoop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := l.stats
	stats.Running = l.running
	stats.PendingSync = l.pending.count(QueueSync)
	stats.PendingAsync = l.pending.count(QueueAsync)
	return stats
}
