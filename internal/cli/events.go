package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opencode-ai/taskutils/internal/db"
	"github.com/opencode-ai/taskutils/internal/models"
	"github.com/spf13/cobra"
)

var (
	eventsRun    string
	eventsType   string
	eventsSince  time.Duration
	eventsLimit  int
	eventsCursor string
)

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVar(&eventsRun, "run", "", "only events of this run ID")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "only events of this type (e.g. run.failed)")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "only events newer than this (e.g. 1h)")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum events to show")
	eventsCmd.Flags().StringVar(&eventsCursor, "cursor", "", "continue after this event ID")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the run journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		if database == nil {
			return &PreflightError{
				Message:  "the journal is disabled",
				Hint:     "Set journal.path in your config and drop --no-journal",
				NextStep: "taskutils events",
			}
		}
		defer database.Close()

		page, err := queryJournal(cmd.Context(), database, eventsQueryFromFlags(time.Now()))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			if IsJSONLOutput() {
				return WriteOutput(out, page.Events)
			}
			return WriteOutput(out, map[string]any{
				"events":      page.Events,
				"next_cursor": page.NextCursor,
			})
		}

		if len(page.Events) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}

		rows := make([][]string, 0, len(page.Events))
		for _, event := range page.Events {
			rows = append(rows, []string{
				event.Timestamp.Local().Format("2006-01-02 15:04:05.000"),
				formatEventType(event.Type),
				event.EntityID,
				formatEventDetails(event),
			})
		}
		if err := writeTable(out, []string{"TIME", "TYPE", "RUN", "DETAILS"}, rows); err != nil {
			return err
		}
		if page.NextCursor != "" {
			fmt.Fprintf(out, "\nMore events: taskutils events --cursor %s\n", page.NextCursor)
		}
		return nil
	},
}

func eventsQueryFromFlags(now time.Time) db.EventQuery {
	q := db.EventQuery{
		Cursor: strings.TrimSpace(eventsCursor),
		Limit:  eventsLimit,
	}
	if run := strings.TrimSpace(eventsRun); run != "" {
		q.EntityID = &run
	}
	if eventType := strings.TrimSpace(eventsType); eventType != "" {
		t := models.EventType(eventType)
		q.Type = &t
	}
	if eventsSince > 0 {
		since := now.Add(-eventsSince)
		q.Since = &since
	}
	return q
}

func queryJournal(ctx context.Context, database *db.DB, q db.EventQuery) (*db.EventPage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	page, err := db.NewEventRepository(database).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	return page, nil
}

func formatEventDetails(event *models.Event) string {
	if len(event.Payload) == 0 {
		return ""
	}
	return strings.TrimSpace(string(event.Payload))
}
