package timer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualOrdersByDueThenSubmission(t *testing.T) {
	v := NewVirtual()
	var got []string

	record := func(name string) Callback {
		return func() error {
			got = append(got, name)
			return nil
		}
	}

	v.ScheduleSync(record("late"), 20*time.Millisecond)
	v.ScheduleAsync(record("first"), 0)
	v.ScheduleSync(record("second"), 0)
	v.ScheduleAsync(record("mid"), 10*time.Millisecond)

	require.NoError(t, v.RunUntilIdle())
	require.Equal(t, []string{"first", "second", "mid", "late"}, got)
	require.Equal(t, 20*time.Millisecond, v.Elapsed())

	trace := v.Trace()
	require.Len(t, trace, 4)
	assert.Equal(t, QueueAsync, trace[0].Queue)
	assert.Equal(t, QueueSync, trace[1].Queue)
	assert.Equal(t, 10*time.Millisecond, trace[2].At)
}

func TestVirtualAdvanceRunsOnlyDueCallbacks(t *testing.T) {
	v := NewVirtual()
	fired := 0

	v.ScheduleSync(func() error {
		fired++
		return nil
	}, 100*time.Millisecond)

	require.NoError(t, v.Advance(99*time.Millisecond))
	require.Zero(t, fired)
	require.Equal(t, 1, v.Pending(QueueSync))

	require.NoError(t, v.Advance(time.Millisecond))
	require.Equal(t, 1, fired)
	require.Equal(t, 100*time.Millisecond, v.Elapsed())
	require.Zero(t, v.Pending(QueueSync))
}

func TestVirtualAdvanceRunsRescheduledCallbacks(t *testing.T) {
	v := NewVirtual()
	var at []time.Duration

	var tick Callback
	tick = func() error {
		at = append(at, v.Elapsed())
		if len(at) < 3 {
			v.ScheduleSync(tick, 10*time.Millisecond)
		}
		return nil
	}
	v.ScheduleSync(tick, 0)

	require.NoError(t, v.Advance(time.Second))
	require.Equal(t, []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond}, at)
	require.Equal(t, time.Second, v.Elapsed())
}

func TestVirtualStopsAtFirstError(t *testing.T) {
	v := NewVirtual()
	boom := errors.New("boom")
	ran := false

	v.ScheduleSync(func() error { return boom }, 5*time.Millisecond)
	v.ScheduleSync(func() error {
		ran = true
		return nil
	}, 6*time.Millisecond)

	err := v.Advance(time.Second)
	require.ErrorIs(t, err, boom)
	require.False(t, ran)
	require.Equal(t, 5*time.Millisecond, v.Elapsed())

	require.NoError(t, v.RunUntilIdle())
	require.True(t, ran)
}

func TestVirtualNegativeDelayIsImmediate(t *testing.T) {
	v := NewVirtual()
	v.ScheduleAsync(func() error { return nil }, -time.Second)

	ok, err := v.Step()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, v.Elapsed())
}

func TestVirtualRunaway(t *testing.T) {
	v := NewVirtual()
	var forever Callback
	forever = func() error {
		v.ScheduleSync(forever, 0)
		return nil
	}
	v.ScheduleSync(forever, 0)

	require.ErrorIs(t, v.RunUntilIdle(), ErrRunaway)
}

func TestScheduleSelectsQueue(t *testing.T) {
	v := NewVirtual()
	noop := func() error { return nil }

	Schedule(v, false, noop, 0)
	Schedule(v, true, noop, 0)
	Schedule(v, true, noop, 0)

	require.Equal(t, 1, v.Pending(QueueSync))
	require.Equal(t, 2, v.Pending(QueueAsync))
	require.Equal(t, QueueAsync, QueueFor(true))
	require.Equal(t, "sync", QueueFor(false).String())
}
