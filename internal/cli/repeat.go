package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/opencode-ai/taskutils/internal/actions"
	"github.com/opencode-ai/taskutils/internal/db"
	"github.com/opencode-ai/taskutils/internal/participants"
	"github.com/opencode-ai/taskutils/internal/repeat"
	"github.com/opencode-ai/taskutils/internal/timer"
	"github.com/spf13/cobra"
)

var (
	repeatAction       string
	repeatArgs         []string
	repeatTimes        int
	repeatDelay        time.Duration
	repeatAsync        bool
	repeatCancelAfter  time.Duration
	repeatParticipants []string
)

func init() {
	rootCmd.AddCommand(repeatCmd)

	repeatCmd.Flags().StringVar(&repeatAction, "action", "print", "action to repeat")
	repeatCmd.Flags().StringArrayVar(&repeatArgs, "arg", nil, "action argument (key=value, repeatable)")
	repeatCmd.Flags().IntVarP(&repeatTimes, "times", "n", 1, "number of iterations")
	repeatCmd.Flags().DurationVar(&repeatDelay, "delay", 0, "delay between iterations")
	repeatCmd.Flags().BoolVar(&repeatAsync, "async", false, "schedule iterations on the async queue")
	repeatCmd.Flags().DurationVar(&repeatCancelAfter, "cancel-after", 0, "cancel the loop after this long")
	repeatCmd.Flags().StringArrayVar(&repeatParticipants, "participant", nil, "connect a broadcast participant (repeatable)")
}

var repeatCmd = &cobra.Command{
	Use:   "repeat",
	Short: "Repeat one action a fixed number of times",
	Long: `Repeat one action a fixed number of times with a fixed delay between
iterations. The first iteration runs immediately. Cancellation takes effect
before the next iteration.`,
	Example: `  taskutils repeat --action print --arg message=hi --times 3 --delay 500ms
  taskutils repeat --action log --arg message=tick --arg level=warn -n 10 --delay 1s --async`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if repeatTimes < 1 {
			return fmt.Errorf("--times must be at least 1")
		}
		if repeatDelay < 0 {
			return fmt.Errorf("--delay must not be negative")
		}
		actionArgs, err := parseSequenceVars(repeatArgs)
		if err != nil {
			return err
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		if database != nil {
			defer database.Close()
		}

		ctx, cancelRequests, stop := interruptContext(cmd.Context())
		defer stop()

		result, runErr := executeRepeat(ctx, repeatOptions{
			Action:       repeatAction,
			Args:         actionArgs,
			Iterations:   repeatTimes,
			Delay:        repeatDelay,
			Async:        repeatAsync,
			Out:          cmd.OutOrStdout(),
			Participants: repeatParticipants,
			Database:     database,
			OnError:      timer.ParseErrorPolicy(GetConfig().Loop.OnError),
			CancelAfter:  repeatCancelAfter,
			Cancel:       cancelRequests,
		})
		if result == nil {
			return runErr
		}

		if IsJSONOutput() || IsJSONLOutput() {
			if err := WriteOutput(cmd.OutOrStdout(), result); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d of %d iterations in %s (run %s)\n",
				formatOutcome(result.Outcome), result.Action, result.Completed, result.Iterations,
				formatDuration(result.Duration), result.RunID)
		}
		return runErr
	},
}

// repeatOptions configures one counted loop.
type repeatOptions struct {
	Action       string
	Args         map[string]string
	Iterations   int
	Delay        time.Duration
	Async        bool
	Out          io.Writer
	Participants []string
	Database     *db.DB
	OnError      timer.ErrorPolicy
	CancelAfter  time.Duration
	Cancel       <-chan struct{}
}

// repeatResult summarizes a finished loop.
type repeatResult struct {
	RunID      string        `json:"run_id"`
	Action     string        `json:"action"`
	Iterations int           `json:"iterations"`
	Completed  int           `json:"completed"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

func executeRepeat(ctx context.Context, opts repeatOptions) (*repeatResult, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	audience := participants.NewRegistry()
	for _, name := range opts.Participants {
		if _, err := audience.Connect(name); err != nil {
			return nil, err
		}
	}

	action, err := actions.Builtins(actions.Env{Out: out, Participants: audience}).Resolve(opts.Action, opts.Args)
	if err != nil {
		return nil, err
	}

	loop := timer.NewEventLoop(timer.Config{OnError: opts.OnError})
	journal := newRunJournal(ctx, opts.Database)
	result := &repeatResult{RunID: journal.runID, Action: opts.Action, Iterations: opts.Iterations}

	var (
		failure  error
		finished bool
	)

	journal.loopStarted(opts.Action, opts.Iterations, opts.Delay, opts.Async)
	handle := repeat.Run(loop, repeat.Config{
		Action: func() error {
			iteration := result.Completed + 1
			if err := action(); err != nil {
				failure = err
				return err
			}
			result.Completed = iteration
			journal.loopIteration(iteration, opts.Iterations-iteration)
			return nil
		},
		Iterations: opts.Iterations,
		Delay:      opts.Delay,
		Async:      opts.Async,
		OnComplete: func() error {
			finished = true
			return nil
		},
	})

	if opts.CancelAfter > 0 {
		t := time.AfterFunc(opts.CancelAfter, handle.Cancel)
		defer t.Stop()
	}
	if opts.Cancel != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-opts.Cancel:
				logger.Warn().Str("run_id", result.RunID).Msg("cancellation requested")
				handle.Cancel()
			case <-done:
			}
		}()
	}

	logger.Info().
		Str("run_id", result.RunID).
		Str("action", opts.Action).
		Int("iterations", opts.Iterations).
		Dur("delay", opts.Delay).
		Bool("async", opts.Async).
		Msg("loop starting")

	started := time.Now()
	runErr := loop.Run(ctx)
	result.Duration = time.Since(started)
	if runErr != nil && failure == nil {
		failure = runErr
	}

	switch {
	case failure != nil:
		result.Outcome = outcomeFailed
		result.Error = failure.Error()
	case finished:
		result.Outcome = outcomeCompleted
	case handle.Cancelled():
		result.Outcome = outcomeCancelled
	default:
		result.Outcome = outcomeStopped
	}
	journal.loopFinished(result.Outcome, result.Completed+1, failure)

	logger.Info().
		Str("run_id", result.RunID).
		Str("outcome", result.Outcome).
		Int("completed", result.Completed).
		Msg("loop finished")

	if failure != nil {
		return result, fmt.Errorf("%s failed on iteration %d: %w", opts.Action, result.Completed+1, failure)
	}
	return result, nil
}
