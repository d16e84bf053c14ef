package timer

import (
	"errors"
	"sync"
	"time"
)

// ErrRunaway is returned by RunUntilIdle when callbacks keep rescheduling
// past the step limit.
var ErrRunaway = errors.New("virtual clock exceeded step limit")

const maxIdleSteps = 1 << 20

// Firing records one callback invocation on the virtual clock.
type Firing struct {
	Queue Queue
	At    time.Duration
}

// Virtual is a deterministic Gateway whose clock only moves when told to.
// Callbacks fire in due order, ties broken by submission order.
type Virtual struct {
	mu      sync.Mutex
	start   time.Time
	elapsed time.Duration
	pending pending
	trace   []Firing
}

// NewVirtual returns a virtual clock at elapsed time zero.
func NewVirtual() *Virtual {
	return &Virtual{start: time.Unix(0, 0).UTC()}
}

// ScheduleSync implements Gateway.
func (v *Virtual) ScheduleSync(cb Callback, delay time.Duration) {
	v.schedule(QueueSync, cb, delay)
}

// ScheduleAsync implements Gateway.
func (v *Virtual) ScheduleAsync(cb Callback, delay time.Duration) {
	v.schedule(QueueAsync, cb, delay)
}

func (v *Virtual) schedule(q Queue, cb Callback, delay time.Duration) {
	if cb == nil {
		return
	}
	if delay < 0 {
		delay = 0
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending.push(v.start.Add(v.elapsed+delay), q, cb)
}

// Now returns the virtual wall time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.start.Add(v.elapsed)
}

// Elapsed returns how far the clock has moved since creation.
func (v *Virtual) Elapsed() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.elapsed
}

// Pending returns the number of callbacks waiting on the given queue.
func (v *Virtual) Pending(q Queue) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending.count(q)
}

// Trace returns a copy of every firing so far.
func (v *Virtual) Trace() []Firing {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Firing, len(v.trace))
	copy(out, v.trace)
	return out
}

// Step runs the next pending callback, moving the clock to its due time.
// It reports false when nothing is pending.
func (v *Virtual) Step() (bool, error) {
	v.mu.Lock()
	e := v.pending.pop()
	if e == nil {
		v.mu.Unlock()
		return false, nil
	}
	if at := e.due.Sub(v.start); at > v.elapsed {
		v.elapsed = at
	}
	v.trace = append(v.trace, Firing{Queue: e.queue, At: v.elapsed})
	v.mu.Unlock()

	return true, e.cb()
}

// Advance moves the clock forward by d, running every callback that becomes
// due on the way, including ones scheduled by earlier callbacks. It stops at
// the first callback error.
func (v *Virtual) Advance(d time.Duration) error {
	v.mu.Lock()
	target := v.elapsed + d
	v.mu.Unlock()

	for {
		v.mu.Lock()
		next := v.pending.peek()
		if next == nil || next.due.Sub(v.start) > target {
			v.elapsed = target
			v.mu.Unlock()
			return nil
		}
		v.mu.Unlock()

		if _, err := v.Step(); err != nil {
			return err
		}
	}
}

// RunUntilIdle runs callbacks until none are pending.
func (v *Virtual) RunUntilIdle() error {
	for i := 0; i < maxIdleSteps; i++ {
		ok, err := v.Step()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return ErrRunaway
}
