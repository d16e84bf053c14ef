// Package timer provides the two-queue deferred execution gateway consumed by
// sequences and loops, together with a single-goroutine event loop host and a
// virtual clock for deterministic tests.
//
// Both queues feed the same loop. "Async" only selects the second queue; it
// never means a callback runs in parallel with another.
package timer

import "time"

// Callback is a unit of deferred work. A returned error is handed to the host
// that owns the queue.
type Callback func() error

// Queue identifies one of the two deferred queues.
type Queue int

const (
	// QueueSync is the default queue.
	QueueSync Queue = iota
	// QueueAsync is the second, independent queue.
	QueueAsync
)

func (q Queue) String() string {
	switch q {
	case QueueSync:
		return "sync"
	case QueueAsync:
		return "async"
	default:
		return "unknown"
	}
}

// QueueFor returns the queue selected by the async flag.
func QueueFor(async bool) Queue {
	if async {
		return QueueAsync
	}
	return QueueSync
}

// Gateway schedules callbacks on one of two queues. Implementations invoke
// each callback exactly once, no earlier than delay after the call, on the
// same cooperative loop. A zero delay means the next turn of the loop.
type Gateway interface {
	ScheduleSync(cb Callback, delay time.Duration)
	ScheduleAsync(cb Callback, delay time.Duration)
}

// Schedule submits cb to the queue selected by async.
func Schedule(gw Gateway, async bool, cb Callback, delay time.Duration) {
	if async {
		gw.ScheduleAsync(cb, delay)
		return
	}
	gw.ScheduleSync(cb, delay)
}
