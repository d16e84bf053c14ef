package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
)

// PreflightError is a user-facing error with a hint and a suggested command.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	return e.Message
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// IsJSONLOutput reports whether --jsonl was given.
func IsJSONLOutput() bool {
	return jsonlOutput
}

// WriteOutput writes v as indented JSON, or as one JSON object per line
// when --jsonl is set and v is a slice.
func WriteOutput(out io.Writer, v any) error {
	if IsJSONLOutput() {
		return writeJSONLines(out, v)
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeJSONLines(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	value := reflect.ValueOf(v)
	if value.Kind() != reflect.Slice {
		return encoder.Encode(v)
	}
	for i := 0; i < value.Len(); i++ {
		if err := encoder.Encode(value.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func printError(err error) {
	if IsJSONOutput() || IsJSONLOutput() {
		_ = json.NewEncoder(os.Stderr).Encode(map[string]string{"error": err.Error()})
		return
	}

	fmt.Fprintf(os.Stderr, "%s %v\n", colorize("Error:", colorRed), err)

	var preflight *PreflightError
	if errors.As(err, &preflight) {
		if hint := strings.TrimSpace(preflight.Hint); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		if next := strings.TrimSpace(preflight.NextStep); next != "" {
			fmt.Fprintf(os.Stderr, "Try:  %s\n", next)
		}
	}
}
