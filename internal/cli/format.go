package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/opencode-ai/taskutils/internal/models"
)

// ANSI color indexes.
const (
	colorRed     = "1"
	colorGreen   = "2"
	colorYellow  = "3"
	colorMagenta = "5"
	colorCyan    = "6"
	colorGray    = "8"
)

func colorEnabled() bool {
	if noColor || IsJSONOutput() || IsJSONLOutput() {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return hasTTY()
}

func colorize(text, color string) string {
	if !colorEnabled() || text == "" {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

func formatEventType(eventType models.EventType) string {
	return colorize(string(eventType), colorForEvent(eventType))
}

func colorForEvent(eventType models.EventType) string {
	switch eventType {
	case models.EventTypeRunCompleted, models.EventTypeLoopCompleted:
		return colorGreen
	case models.EventTypeRunFailed, models.EventTypeLoopFailed:
		return colorRed
	case models.EventTypeRunCancelled:
		return colorYellow
	case models.EventTypeRunStarted, models.EventTypeLoopStarted:
		return colorCyan
	case models.EventTypeRunStep, models.EventTypeLoopIteration:
		return colorGray
	default:
		return colorMagenta
	}
}

// formatOutcome renders a run outcome label.
func formatOutcome(outcome string) string {
	switch strings.ToLower(outcome) {
	case outcomeCompleted:
		return colorize("OK "+outcome, colorGreen)
	case outcomeFailed:
		return colorize("ERR "+outcome, colorRed)
	case outcomeCancelled:
		return colorize("WARN "+outcome, colorYellow)
	default:
		return colorize("WAIT "+outcome, colorCyan)
	}
}
