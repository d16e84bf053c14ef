package sequence

import (
	"testing"
	"time"

	"github.com/opencode-ai/taskutils/internal/timer"
	"github.com/stretchr/testify/require"
)

func TestBuilderReturnsSameSequence(t *testing.T) {
	seq := New(timer.NewVirtual())
	noop := func() error { return nil }

	require.Same(t, seq, seq.AddVoid(noop))
	require.Same(t, seq, seq.AddDelay(time.Second))
	require.Same(t, seq, seq.SetAsync(true))
	require.Same(t, seq, seq.SetCancelled(false))
	require.Same(t, seq, seq.AddBulk(nil, 2))
	require.Same(t, seq, seq.Add(Wait(0)))
	require.Equal(t, 4, seq.Len())
}

func TestSetAsyncOnlyEnqueues(t *testing.T) {
	seq := New(timer.NewVirtual()).SetAsync(true)

	require.False(t, seq.Async(), "mode must not change before the instruction runs")
	require.Equal(t, KindSetMode, seq.Instructions()[0].Kind())
	require.True(t, seq.Instructions()[0].Async())
}

func TestSetCancelledToggles(t *testing.T) {
	seq := New(nil)
	require.False(t, seq.Cancelled())
	seq.SetCancelled(true)
	require.True(t, seq.Cancelled())
	seq.SetCancelled(false)
	require.False(t, seq.Cancelled())
}

func kinds(seq *Sequence) []Kind {
	var out []Kind
	for _, in := range seq.Instructions() {
		out = append(out, in.Kind())
	}
	return out
}

func TestAddBulkMatchesConcatenation(t *testing.T) {
	var calls []string
	a := func() error { calls = append(calls, "a"); return nil }
	b := func() error { calls = append(calls, "b"); return nil }
	block := []Instruction{RunAction(a), Wait(0), RunAction(b)}

	bulk := New(nil).AddBulk(block, 3)
	manual := New(nil)
	for i := 0; i < 3; i++ {
		manual.AddVoid(a).AddDelay(0).AddVoid(b)
	}

	require.Equal(t, kinds(manual), kinds(bulk))
	require.Equal(t, 9, bulk.Len())

	for _, in := range bulk.Instructions() {
		if in.Kind() == KindRunAction {
			require.NoError(t, in.Action()())
		}
	}
	require.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, calls)
}

func TestAddBulkDefaultsToOnce(t *testing.T) {
	block := []Instruction{Wait(time.Second), SetMode(true)}

	for _, amount := range []int{0, -4} {
		seq := New(nil).AddBulk(block, amount)
		require.Equal(t, New(nil).AddBulk(block, 1).Instructions(), seq.Instructions())
	}
}

func TestAddBulkFromSelf(t *testing.T) {
	seq := New(nil).AddDelay(time.Second).SetAsync(true)
	seq.AddBulk(seq.Instructions(), 2)

	require.Equal(t, []Kind{KindWait, KindSetMode, KindWait, KindSetMode, KindWait, KindSetMode}, kinds(seq))
}

func TestInstructionsIsACopy(t *testing.T) {
	seq := New(nil).AddDelay(time.Second)
	list := seq.Instructions()
	list[0] = SetMode(true)

	require.Equal(t, KindWait, seq.Instructions()[0].Kind())
}

func TestInstructionString(t *testing.T) {
	require.Equal(t, "wait(1.5s)", Wait(1500*time.Millisecond).String())
	require.Equal(t, "mode(async=true)", SetMode(true).String())
	require.Equal(t, "action", RunAction(nil).String())
	require.Equal(t, "kind(7)", Kind(7).String())
}
