// Package events provides helper functions for journaling sequence and loop runs.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencode-ai/taskutils/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

func write(ctx context.Context, repo Repository, eventType models.EventType, entityType models.EntityType, runID string, payload any, metadata map[string]string) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
		}
		raw = data
	}

	return repo.Create(ctx, &models.Event{
		Type:       eventType,
		EntityType: entityType,
		EntityID:   runID,
		Payload:    raw,
		Metadata:   metadata,
	})
}

// LogRunStarted records the start of a sequence run.
func LogRunStarted(ctx context.Context, repo Repository, runID, name string, instructions int) error {
	return write(ctx, repo, models.EventTypeRunStarted, models.EntityTypeSequence, runID,
		models.RunStartedPayload{Sequence: name, Instructions: instructions},
		map[string]string{"sequence": name})
}

// LogRunStep records one executed action of a sequence run.
func LogRunStep(ctx context.Context, repo Repository, runID string, index int, action string, async bool) error {
	return write(ctx, repo, models.EventTypeRunStep, models.EntityTypeSequence, runID,
		models.RunStepPayload{Index: index, Action: action, Async: async}, nil)
}

// LogRunCompleted records that a sequence run reached its end.
func LogRunCompleted(ctx context.Context, repo Repository, runID string) error {
	return write(ctx, repo, models.EventTypeRunCompleted, models.EntityTypeSequence, runID, nil, nil)
}

// LogRunCancelled records that a sequence run was stopped by cancellation.
func LogRunCancelled(ctx context.Context, repo Repository, runID string) error {
	return write(ctx, repo, models.EventTypeRunCancelled, models.EntityTypeSequence, runID, nil, nil)
}

// LogRunStopped records that a sequence run was cut short by its host
// before it could finish or observe cancellation.
func LogRunStopped(ctx context.Context, repo Repository, runID string) error {
	return write(ctx, repo, models.EventTypeRunStopped, models.EntityTypeSequence, runID, nil, nil)
}

// LogRunFailed records a failed action of a sequence run.
func LogRunFailed(ctx context.Context, repo Repository, runID string, index int, cause error) error {
	return write(ctx, repo, models.EventTypeRunFailed, models.EntityTypeSequence, runID,
		models.RunFailedPayload{Error: errorText(cause), Index: index}, nil)
}

// LogLoopStarted records the start of a counted loop.
func LogLoopStarted(ctx context.Context, repo Repository, runID, action string, iterations int, delay time.Duration, async bool) error {
	return write(ctx, repo, models.EventTypeLoopStarted, models.EntityTypeLoop, runID,
		models.LoopStartedPayload{Action: action, Iterations: iterations, Delay: delay.String(), Async: async},
		map[string]string{"action": action})
}

// LogLoopIteration records one loop iteration.
func LogLoopIteration(ctx context.Context, repo Repository, runID string, iteration, remaining int) error {
	return write(ctx, repo, models.EventTypeLoopIteration, models.EntityTypeLoop, runID,
		models.LoopIterationPayload{Iteration: iteration, Remaining: remaining}, nil)
}

// LogLoopCompleted records that a loop's completion callback ran.
func LogLoopCompleted(ctx context.Context, repo Repository, runID string) error {
	return write(ctx, repo, models.EventTypeLoopCompleted, models.EntityTypeLoop, runID, nil, nil)
}

// LogLoopCancelled records that a loop stopped before an iteration because
// it was cancelled.
func LogLoopCancelled(ctx context.Context, repo Repository, runID string) error {
	return write(ctx, repo, models.EventTypeLoopCancelled, models.EntityTypeLoop, runID, nil, nil)
}

// LogLoopStopped records that a loop was cut short by its host.
func LogLoopStopped(ctx context.Context, repo Repository, runID string) error {
	return write(ctx, repo, models.EventTypeLoopStopped, models.EntityTypeLoop, runID, nil, nil)
}

// LogLoopFailed records a failed loop iteration.
func LogLoopFailed(ctx context.Context, repo Repository, runID string, iteration int, cause error) error {
	return write(ctx, repo, models.EventTypeLoopFailed, models.EntityTypeLoop, runID,
		models.RunFailedPayload{Error: errorText(cause), Index: iteration}, nil)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
