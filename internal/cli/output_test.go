package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteOutputJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteOutput(&out, map[string]int{"steps": 2}))
	require.Equal(t, "{\n  \"steps\": 2\n}\n", out.String())
}

func TestWriteOutputJSONLines(t *testing.T) {
	original := jsonlOutput
	jsonlOutput = true
	defer func() { jsonlOutput = original }()

	var out bytes.Buffer
	require.NoError(t, WriteOutput(&out, []string{"a", "b"}))
	require.Equal(t, []string{`"a"`, `"b"`}, strings.Split(strings.TrimSpace(out.String()), "\n"))
}

func TestPreflightErrorUnwraps(t *testing.T) {
	err := error(&PreflightError{Message: "journal missing", Hint: "pass --no-journal"})

	var preflight *PreflightError
	require.True(t, errors.As(err, &preflight))
	require.Equal(t, "journal missing", err.Error())
}

func TestWriteTable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeTable(&out, []string{"NAME", "STEPS"}, [][]string{{"countdown", "7"}}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], "countdown"))
	require.Equal(t, "yes", formatYesNo(true))
}
