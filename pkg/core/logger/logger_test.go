package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		out = append(out, rec)
	}
	return out
}

func TestAssessmentEvent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{Level: "INFO", Format: "json", Output: &buf}))

	Assessment(context.Background(), "ACME", "HIGH", 47, "red_flags", 3)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	rec := lines[0]
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "ASSESSMENT", rec["type"])
	assert.Equal(t, "ACME", rec["subject"])
	assert.Equal(t, "HIGH", rec["risk_level"])
	assert.Equal(t, float64(47), rec["risk_score"])
	assert.Equal(t, float64(3), rec["red_flags"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{Level: "WARN", Format: "json", Output: &buf}))

	ctx := context.Background()
	Debug(ctx, "hidden")
	Info(ctx, "hidden")
	Skip(ctx, "beneish_pair", "missing required fields", "index", 1)
	ErrorWithErr(ctx, "fetch failed", errors.New("boom"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "SKIP", lines[0]["type"])
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestOperationTimerWithoutTracing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{Level: "DEBUG", Format: "json", Output: &buf}))

	op := StartOperation(context.Background(), "unit", "periods", 3)
	require.NotNil(t, op.Context())
	op.EndWithError(errors.New("nope"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Operation started", lines[0]["msg"])
	assert.Equal(t, "Operation failed", lines[1]["msg"])
	assert.Equal(t, "unit", lines[1]["operation"])
	assert.False(t, IsTracingEnabled())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("warning").String())
	assert.Equal(t, "ERROR", parseLogLevel("ERROR").String())
	assert.Equal(t, "INFO", parseLogLevel("bogus").String())
}
