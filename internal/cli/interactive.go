package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opencode-ai/taskutils/internal/sequences"
	"golang.org/x/term"
)

// IsNonInteractive reports whether prompts should be skipped.
func IsNonInteractive() bool {
	if nonInteractive {
		return true
	}
	if _, ok := os.LookupEnv("TASKUTILS_NON_INTERACTIVE"); ok {
		return true
	}
	return !hasTTY()
}

// IsInteractive reports whether the session can prompt for user input.
func IsInteractive() bool {
	return !IsNonInteractive()
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// promptMissingVars asks for every required variable without a value or
// default. vars is updated in place.
func promptMissingVars(in io.Reader, out io.Writer, def *sequences.Definition, vars map[string]string) error {
	reader := bufio.NewReader(in)
	for _, variable := range def.Variables {
		if !variable.Required || variable.Default != "" || strings.TrimSpace(vars[variable.Name]) != "" {
			continue
		}

		label := variable.Name
		if variable.Description != "" {
			label = fmt.Sprintf("%s (%s)", variable.Name, variable.Description)
		}
		fmt.Fprintf(out, "%s: ", label)

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read %s: %w", variable.Name, err)
		}
		vars[variable.Name] = strings.TrimSpace(line)
		if err == io.EOF {
			return nil
		}
	}
	return nil
}
