package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opencode-ai/taskutils/internal/actions"
	"github.com/opencode-ai/taskutils/internal/db"
	"github.com/opencode-ai/taskutils/internal/participants"
	"github.com/opencode-ai/taskutils/internal/sequence"
	"github.com/opencode-ai/taskutils/internal/sequences"
	"github.com/opencode-ai/taskutils/internal/timer"
	"github.com/spf13/cobra"
)

var (
	runVars         []string
	runCancelAfter  time.Duration
	runParticipants []string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "set a variable (key=value, repeatable)")
	runCmd.Flags().DurationVar(&runCancelAfter, "cancel-after", 0, "request cancellation after this long")
	runCmd.Flags().StringArrayVar(&runParticipants, "participant", nil, "connect a broadcast participant (repeatable)")
}

var runCmd = &cobra.Command{
	Use:   "run <name|file>",
	Short: "Run a sequence",
	Long: `Run a sequence by name or from a YAML file.

Cancellation (Ctrl-C or --cancel-after) is cooperative: the run stops after
the next action or mode switch. A run waiting on a delay finishes the wait
first. A run counts as completed once its last action has run, even if
cancellation arrived during that action. Press Ctrl-C twice to stop
immediately; the run is then reported as stopped.`,
	Example: `  taskutils run countdown
  taskutils run restart-notice --var reason=upgrade --participant ann --participant bob
  taskutils run ./deploy.yaml --cancel-after 30s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		progress := startProgress("Loading " + args[0])
		def, err := resolveDefinition(args[0])
		if err != nil {
			progress.Fail()
			return err
		}
		progress.Done(fmt.Sprintf("%d steps", len(def.Steps)))

		vars, err := parseSequenceVars(runVars)
		if err != nil {
			return err
		}
		if IsInteractive() {
			if err := promptMissingVars(cmd.InOrStdin(), cmd.ErrOrStderr(), def, vars); err != nil {
				return err
			}
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

		result, runErr := executeSequence(ctx, runOptions{
			Definition:   def,
			Vars:         vars,
			Out:          cmd.OutOrStdout(),
			Participants: runParticipants,
			Database:     database,
			OnError:      timer.ParseErrorPolicy(GetConfig().Loop.OnError),
			CancelAfter:  runCancelAfter,
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
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d actions in %s (run %s)\n",
				formatOutcome(result.Outcome), result.Sequence, result.Steps,
				formatDuration(result.Duration), result.RunID)
		}
		return runErr
	},
}

// runOptions configures one sequence run.
type runOptions struct {
	Definition   *sequences.Definition
	Vars         map[string]string
	Out          io.Writer
	Participants []string
	Database     *db.DB
	OnError      timer.ErrorPolicy

	// CancelAfter, when positive, sets the cancellation flag after this long.
	CancelAfter time.Duration

	// Cancel sets the cancellation flag when it is closed or receives.
	Cancel <-chan struct{}
}

// runResult summarizes a finished run.
type runResult struct {
	RunID        string        `json:"run_id"`
	Sequence     string        `json:"sequence"`
	Instructions int           `json:"instructions"`
	Steps        int           `json:"steps"`
	Outcome      string        `json:"outcome"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// executeSequence builds the definition onto a fresh event loop and drives
// the loop until the run is over. Failed runs return both a result and an
// error.
func executeSequence(ctx context.Context, opts runOptions) (*runResult, error) {
	def := opts.Definition
	if def == nil {
		return nil, fmt.Errorf("sequence is required")
	}
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

	loop := timer.NewEventLoop(timer.Config{OnError: opts.OnError})
	journal := newRunJournal(ctx, opts.Database)
	result := &runResult{RunID: journal.runID, Sequence: def.Name}

	var (
		seq         *sequence.Sequence
		failure     error
		failedAt    int
		completed   bool
		actionCount int
	)

	built, err := sequences.Build(loop, def, sequences.BuildOptions{
		Vars:     opts.Vars,
		Resolver: actions.Builtins(actions.Env{Out: out, Participants: audience}),
		Wrap: func(name string, action sequence.Action) sequence.Action {
			return func() error {
				result.Steps++
				index := result.Steps
				journal.runStep(index, name, seq.Async())
				if err := action(); err != nil {
					failure, failedAt = err, index
					return err
				}
				if index == actionCount {
					completed = true
				}
				return nil
			}
		},
	})
	if err != nil {
		return nil, err
	}
	seq = built
	result.Instructions = seq.Len()
	actionCount = countActions(seq)
	seq.AddVoid(func() error {
		completed = true
		return nil
	})

	if opts.CancelAfter > 0 {
		t := time.AfterFunc(opts.CancelAfter, func() { seq.SetCancelled(true) })
		defer t.Stop()
	}
	if opts.Cancel != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-opts.Cancel:
				logger.Warn().Str("run_id", result.RunID).Msg("cancellation requested")
				seq.SetCancelled(true)
			case <-done:
			}
		}()
	}

	logger.Info().
		Str("run_id", result.RunID).
		Str("sequence", def.Name).
		Int("instructions", result.Instructions).
		Msg("run starting")
	journal.runStarted(def.Name, result.Instructions)

	started := time.Now()
	runErr := seq.Execute()
	if runErr == nil {
		runErr = loop.Run(ctx)
	}
	result.Duration = time.Since(started)
	if runErr != nil && failure == nil {
		failure = runErr
	}

	switch {
	case failure != nil:
		result.Outcome = outcomeFailed
		result.Error = failure.Error()
	case completed:
		result.Outcome = outcomeCompleted
	case seq.Cancelled():
		result.Outcome = outcomeCancelled
	default:
		result.Outcome = outcomeStopped
	}
	journal.runFinished(result.Outcome, failedAt, failure)

	logger.Info().
		Str("run_id", result.RunID).
		Str("outcome", result.Outcome).
		Int("steps", result.Steps).
		Dur("elapsed", result.Duration).
		Msg("run finished")

	if failure != nil {
		return result, fmt.Errorf("sequence %s failed at action %d: %w", def.Name, failedAt, failure)
	}
	return result, nil
}

func countActions(seq *sequence.Sequence) int {
	n := 0
	for _, in := range seq.Instructions() {
		if in.Kind() == sequence.KindRunAction {
			n++
		}
	}
	return n
}

// interruptContext turns the first SIGINT or SIGTERM into a cancellation
// request and the second into a hard stop of the returned context.
func interruptContext(parent context.Context) (context.Context, <-chan struct{}, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	requests := make(chan struct{})

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-signals:
			close(requests)
		case <-ctx.Done():
			return
		}
		select {
		case <-signals:
			logger.Warn().Msg("interrupted again, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, requests, func() {
		signal.Stop(signals)
		cancel()
	}
}
