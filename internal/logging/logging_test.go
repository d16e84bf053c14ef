package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestComponentJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	logger := Component("event-loop")
	logger.Debug().Int("pending", 2).Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "event-loop", line["component"])
	require.Equal(t, "hello", line["message"])
	require.EqualValues(t, 2, line["pending"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "error", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	logger := Component("x")
	logger.Info().Msg("dropped")
	require.Zero(t, buf.Len())
}
