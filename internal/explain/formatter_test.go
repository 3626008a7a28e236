package explain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter_FormatText(t *testing.T) {
	e, err := evaluate(t, newBlueprint(nil))
	require.NoError(t, err)

	out := NewFormatter(false).FormatText(e)
	for _, want := range []string{
		"Stack Selection: Shop Front",
		"Seed:        42",
		"Anchor:      rust",
		"1. Actix Web",
		"quality 0.30×",
		"Topics decided:  9/9",
		"Monthly cost:    $675.00",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "No eligible candidate")
	assert.NotContains(t, out, "\x1b[", "color disabled output has no escape codes")
}

func TestFormatter_FormatTextFailure(t *testing.T) {
	ceiling := 300.0
	e, err := evaluate(t, newBlueprint(&ceiling))
	require.Error(t, err)

	out := NewFormatter(false).FormatText(e)
	assert.Contains(t, out, "No eligible candidate: cache, queue, ai, ci_cd")
	assert.Contains(t, out, "[cost_ceiling]")
	assert.Contains(t, out, "Budget: $")
	assert.NotContains(t, out, "Monthly cost")
}

func TestFormatter_FormatJSON(t *testing.T) {
	e, err := evaluate(t, newBlueprint(nil))
	require.NoError(t, err)

	out, err := NewFormatter(false).FormatJSON(e)
	require.NoError(t, err)

	var decoded Explanation
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, e.PlanHash, decoded.PlanHash)
	assert.Equal(t, len(e.Topics), len(decoded.Topics))
	assert.Equal(t, e.Topics[1].Choice, decoded.Topics[1].Choice)
}

func TestFormatter_FormatCompact(t *testing.T) {
	ceiling := 300.0
	e, _ := evaluate(t, newBlueprint(&ceiling))

	out := NewFormatter(false).FormatCompact(e)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Shop Front (seed 42)", lines[0])
	assert.Contains(t, out, "cache        -> none")
	assert.Contains(t, out, "backend      -> not scored")
}

func TestFormatter_FormatMarkdown(t *testing.T) {
	e, err := evaluate(t, newBlueprint(nil))
	require.NoError(t, err)

	out := NewFormatter(true).FormatMarkdown(e)
	assert.True(t, strings.HasPrefix(out, "# Stack Selection: Shop Front"))
	assert.Contains(t, out, "## backend")
	assert.Contains(t, out, "| 1 | Actix Web |")
}
