package cli

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opencode-ai/taskutils/internal/db"
	"github.com/opencode-ai/taskutils/internal/events"
)

// Run outcomes.
const (
	outcomeCompleted = "completed"
	outcomeCancelled = "cancelled"
	outcomeFailed    = "failed"
	outcomeStopped   = "stopped"
)

// runJournal records one run. With a nil repository every method is a
// no-op. Write failures are logged, not returned. Writes ignore cancellation
// of the run's context so a hard stop is still recorded.
type runJournal struct {
	ctx   context.Context
	repo  events.Repository
	runID string
}

func newRunJournal(ctx context.Context, database *db.DB) *runJournal {
	if ctx == nil {
		ctx = context.Background()
	}
	j := &runJournal{ctx: context.WithoutCancel(ctx), runID: uuid.NewString()}
	if database != nil {
		j.repo = db.NewEventRepository(database)
	}
	return j
}

func (j *runJournal) record(what string, err error) {
	if err != nil {
		logger.Warn().Err(err).Str("run_id", j.runID).Str("event", what).Msg("journal write failed")
	}
}

func (j *runJournal) enabled() bool {
	return j != nil && j.repo != nil
}

func (j *runJournal) runStarted(name string, instructions int) {
	if j.enabled() {
		j.record("run.started", events.LogRunStarted(j.ctx, j.repo, j.runID, name, instructions))
	}
}

func (j *runJournal) runStep(index int, action string, async bool) {
	if j.enabled() {
		j.record("run.step", events.LogRunStep(j.ctx, j.repo, j.runID, index, action, async))
	}
}

func (j *runJournal) runFinished(outcome string, index int, cause error) {
	if !j.enabled() {
		return
	}
	switch outcome {
	case outcomeCompleted:
		j.record("run.completed", events.LogRunCompleted(j.ctx, j.repo, j.runID))
	case outcomeCancelled:
		j.record("run.cancelled", events.LogRunCancelled(j.ctx, j.repo, j.runID))
	case outcomeStopped:
		j.record("run.stopped", events.LogRunStopped(j.ctx, j.repo, j.runID))
	default:
		j.record("run.failed", events.LogRunFailed(j.ctx, j.repo, j.runID, index, cause))
	}
}

func (j *runJournal) loopStarted(action string, iterations int, delay time.Duration, async bool) {
	if j.enabled() {
		j.record("loop.started", events.LogLoopStarted(j.ctx, j.repo, j.runID, action, iterations, delay, async))
	}
}

func (j *runJournal) loopIteration(iteration, remaining int) {
	if j.enabled() {
		j.record("loop.iteration", events.LogLoopIteration(j.ctx, j.repo, j.runID, iteration, remaining))
	}
}

func (j *runJournal) loopFinished(outcome string, iteration int, cause error) {
	if !j.enabled() {
		return
	}
	switch outcome {
	case outcomeCompleted:
		j.record("loop.completed", events.LogLoopCompleted(j.ctx, j.repo, j.runID))
	case outcomeCancelled:
		j.record("loop.cancelled", events.LogLoopCancelled(j.ctx, j.repo, j.runID))
	case outcomeStopped:
		j.record("loop.stopped", events.LogLoopStopped(j.ctx, j.repo, j.runID))
	default:
		j.record("loop.failed", events.LogLoopFailed(j.ctx, j.repo, j.runID, iteration, cause))
	}
}
