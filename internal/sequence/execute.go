package sequence

import "github.com/opencode-ai/taskutils/internal/timer"

// Execute starts a run from the first instruction. The run covers the
// instructions present now; later appends wait for the next Execute.
//
// The synchronous prefix of the run happens before Execute returns, and its
// first failing action's error is returned unchanged. Failures in deferred
// steps are returned to the gateway from the failing callback. Either way the
// run stops at the failure.
//
// The mode flag and the cancellation flag are not reset between runs.
func (s *Sequence) Execute() error {
	r := &run{seq: s, n: len(s.instructions)}
	return r.advance()
}

// run is the interpreter state of one Execute call.
type run struct {
	seq *Sequence
	i   int
	n   int
}

// advance dispatches from the cursor until the run suspends, finishes, stops
// at a cancellation checkpoint, or an action fails.
func (r *run) advance() error {
	for r.i < r.n {
		in := r.seq.instructions[r.i]

		switch in.kind {
		case KindRunAction:
			if r.seq.async {
				r.seq.gateway.ScheduleAsync(r.deferred(in), 0)
				return nil
			}
			if err := in.invoke(); err != nil {
				return err
			}
			if !r.step() {
				return nil
			}

		case KindWait:
			timer.Schedule(r.seq.gateway, r.seq.async, r.resume, in.duration)
			return nil

		case KindSetMode:
			r.seq.async = in.async
			if !r.step() {
				return nil
			}

		default:
			// Unknown kinds cannot be built through the package API.
			r.i++
		}
	}
	return nil
}

// step moves past a completed action or mode switch and reports whether the
// run may go on.
func (r *run) step() bool {
	r.i++
	return !r.seq.Cancelled()
}

// resume continues after a wait. The wait path has no cancellation check.
func (r *run) resume() error {
	r.i++
	return r.advance()
}

func (r *run) deferred(in Instruction) timer.Callback {
	return func() error {
		if err := in.invoke(); err != nil {
			return err
		}
		if !r.step() {
			return nil
		}
		return r.advance()
	}
}
