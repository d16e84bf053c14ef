package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/opencode-ai/taskutils/internal/models"
	"github.com/opencode-ai/taskutils/internal/timer"
	"github.com/stretchr/testify/require"
)

func TestExecuteRepeatCompletes(t *testing.T) {
	database := setupJournal(t)

	var out bytes.Buffer
	result, err := executeRepeat(context.Background(), repeatOptions{
		Action:     "print",
		Args:       map[string]string{"message": "hi"},
		Iterations: 3,
		Delay:      time.Millisecond,
		Async:      true,
		Out:        &out,
		Database:   database,
	})
	require.NoError(t, err)
	require.Equal(t, outcomeCompleted, result.Outcome)
	require.Equal(t, 3, result.Completed)
	require.Equal(t, "hi\nhi\nhi\n", out.String())

	counts := journalTypes(t, database, models.EntityTypeLoop, result.RunID)
	require.Equal(t, 1, counts[models.EventTypeLoopStarted])
	require.Equal(t, 3, counts[models.EventTypeLoopIteration])
	require.Equal(t, 1, counts[models.EventTypeLoopCompleted])
}

func TestExecuteRepeatFailure(t *testing.T) {
	database := setupJournal(t)

	result, err := executeRepeat(context.Background(), repeatOptions{
		Action:     "fail",
		Args:       map[string]string{"message": "nope"},
		Iterations: 5,
		Out:        &bytes.Buffer{},
		Database:   database,
		OnError:    timer.ErrorPolicyStop,
	})
	require.ErrorContains(t, err, "nope")
	require.Equal(t, outcomeFailed, result.Outcome)
	require.Zero(t, result.Completed)

	counts := journalTypes(t, database, models.EntityTypeLoop, result.RunID)
	require.Equal(t, 1, counts[models.EventTypeLoopFailed])
	require.Zero(t, counts[models.EventTypeLoopCompleted])
}

func TestExecuteRepeatCancelled(t *testing.T) {
	database := setupJournal(t)
	cancel := make(chan struct{})
	close(cancel)

	var out bytes.Buffer
	result, err := executeRepeat(context.Background(), repeatOptions{
		Action:     "print",
		Args:       map[string]string{"message": "hi"},
		Iterations: 100,
		Delay:      20 * time.Millisecond,
		Out:        &out,
		Database:   database,
		Cancel:     cancel,
	})
	require.NoError(t, err)
	require.Equal(t, outcomeCancelled, result.Outcome)
	require.Less(t, result.Completed, 100)

	counts := journalTypes(t, database, models.EntityTypeLoop, result.RunID)
	require.Equal(t, 1, counts[models.EventTypeLoopStarted])
	require.Equal(t, 1, counts[models.EventTypeLoopCancelled])
	require.Zero(t, counts[models.EventTypeLoopCompleted])
}

func TestExecuteRepeatStoppedByContext(t *testing.T) {
	database := setupJournal(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	result, err := executeRepeat(ctx, repeatOptions{
		Action:     "print",
		Args:       map[string]string{"message": "hi"},
		Iterations: 3,
		Delay:      10 * time.Second,
		Out:        &bytes.Buffer{},
		Database:   database,
	})
	require.NoError(t, err)
	require.Equal(t, outcomeStopped, result.Outcome)
	require.Equal(t, 1, result.Completed)

	counts := journalTypes(t, database, models.EntityTypeLoop, result.RunID)
	require.Equal(t, 1, counts[models.EventTypeLoopStopped])
	require.Zero(t, counts[models.EventTypeLoopFailed])
}

func TestExecuteRepeatUnknownAction(t *testing.T) {
	_, err := executeRepeat(context.Background(), repeatOptions{Action: "teleport", Iterations: 1})
	require.Error(t, err)
}
