package cli

import (
	"fmt"
	"os"
	"time"
)

type progressStep struct {
	label   string
	started time.Time
	enabled bool
}

func startProgress(label string) *progressStep {
	if !progressEnabled() {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s... ", label)
	return &progressStep{
		label:   label,
		started: time.Now(),
		enabled: true,
	}
}

// Done finishes the step. detail, when set, replaces the word "done".
func (p *progressStep) Done(detail string) {
	if p == nil || !p.enabled {
		return
	}
	if detail == "" {
		detail = "done"
	}
	fmt.Fprintf(os.Stderr, "%s (%s)\n", detail, formatDuration(time.Since(p.started)))
}

// Fail marks the step failed. The error itself is reported by the caller.
func (p *progressStep) Fail() {
	if p == nil || !p.enabled {
		return
	}
	fmt.Fprintln(os.Stderr, colorize("failed", colorRed))
}

func progressEnabled() bool {
	if IsJSONOutput() || IsJSONLOutput() || noProgress {
		return false
	}
	if _, ok := os.LookupEnv("TASKUTILS_NO_PROGRESS"); ok {
		return false
	}
	return hasTTY()
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return d.Round(10 * time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
