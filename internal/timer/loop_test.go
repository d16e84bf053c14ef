package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, ErrorPolicyContinue, cfg.OnError)
	require.NotNil(t, cfg.Now)
}

func TestParseErrorPolicy(t *testing.T) {
	require.Equal(t, ErrorPolicyStop, ParseErrorPolicy("stop"))
	require.Equal(t, ErrorPolicyContinue, ParseErrorPolicy("continue"))
	require.Equal(t, ErrorPolicyStop, ParseErrorPolicy(" STOP "))
	require.Equal(t, ErrorPolicyContinue, ParseErrorPolicy(""))
}

func TestEventLoopRunsInDueOrderAndGoesIdle(t *testing.T) {
	loop := NewEventLoop(Config{})
	var got []string

	loop.ScheduleSync(func() error {
		got = append(got, "delayed")
		return nil
	}, 20*time.Millisecond)
	loop.ScheduleAsync(func() error {
		got = append(got, "async")
		return nil
	}, 0)
	loop.Post(func() error {
		got = append(got, "sync")
		loop.ScheduleAsync(func() error {
			got = append(got, "nested")
			return nil
		}, 0)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, loop.Run(ctx))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.Equal(t, []string{"async", "sync", "nested", "delayed"}, got)

	stats := loop.Stats()
	require.False(t, stats.Running)
	require.EqualValues(t, 4, stats.Executed)
	require.Zero(t, stats.PendingSync+stats.PendingAsync)
}

func TestEventLoopContinuePolicyRecordsFailure(t *testing.T) {
	loop := NewEventLoop(Config{OnError: ErrorPolicyContinue})
	ran := false

	loop.Post(func() error { return errors.New("boom") })
	loop.Post(func() error {
		ran = true
		return nil
	})

	require.NoError(t, loop.Run(context.Background()))
	require.True(t, ran)

	stats := loop.Stats()
	require.EqualValues(t, 1, stats.Failed)
	require.Equal(t, "boom", stats.LastError)
}

func TestEventLoopStopPolicyReturnsFailure(t *testing.T) {
	loop := NewEventLoop(Config{OnError: ErrorPolicyStop})
	boom := errors.New("boom")
	ran := false

	loop.Post(func() error { return boom })
	loop.Post(func() error {
		ran = true
		return nil
	})

	require.ErrorIs(t, loop.Run(context.Background()), boom)
	require.False(t, ran)
	require.Equal(t, 1, loop.Stats().PendingSync)
}

func TestEventLoopContextCancel(t *testing.T) {
	loop := NewEventLoop(Config{})
	loop.ScheduleSync(func() error { return nil }, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return loop.Stats().Running
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("event loop did not stop")
	}
	require.Equal(t, 1, loop.Stats().PendingSync)
}

func TestEventLoopWakesForEarlierWork(t *testing.T) {
	loop := NewEventLoop(Config{})
	var mu sync.Mutex
	var got []string

	loop.ScheduleSync(func() error {
		mu.Lock()
		got = append(got, "late")
		mu.Unlock()
		return nil
	}, 200*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return loop.Stats().Running
	}, time.Second, 5*time.Millisecond)

	loop.ScheduleAsync(func() error {
		mu.Lock()
		got = append(got, "early")
		mu.Unlock()
		return nil
	}, 0)

	require.NoError(t, <-done)
	require.Equal(t, []string{"early", "late"}, got)
}

func TestEventLoopRejectsConcurrentRun(t *testing.T) {
	loop := NewEventLoop(Config{})
	release := make(chan struct{})
	loop.Post(func() error {
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return loop.Stats().Running
	}, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, loop.Run(context.Background()), ErrLoopAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
}
