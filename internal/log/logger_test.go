package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/runeforge/internal/errors"
)

func jsonLogger(buf *bytes.Buffer, level Level) *Logger {
	return New(Config{Level: level, Format: FormatJSON, Output: buf, ServiceName: "runeforge", ServiceVersion: "test"})
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("console")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, LevelWarn)

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown", "topic", "backend")
	entry := lastEntry(t, &buf)
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "backend", entry["topic"])
	assert.Equal(t, "runeforge", entry["service"])
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, LevelDebug)

	coded := errors.NewNoEligibleCandidateError(fmt.Errorf("backend"))
	l.WithError(fmt.Errorf("select: %w", coded)).Error("selection failed")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "SELECT-001", entry["error_code"])
	assert.Equal(t, "no eligible candidate", entry["error"])
	assert.Equal(t, "backend", entry["cause"])
	assert.NotEmpty(t, entry["suggestions"])

	l.WithError(fmt.Errorf("plain")).Info("x")
	entry = lastEntry(t, &buf)
	assert.Equal(t, "plain", entry["error"])
	assert.NotContains(t, entry, "error_code")

	assert.Same(t, l, l.WithError(nil))
}

func TestLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, LevelInfo)

	l.LogError(context.Background(), "load failed", errors.NewBlueprintNotFoundError("bp.yaml"))
	entry := lastEntry(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "BLUEPRINT-001", entry["error_code"])
	assert.Contains(t, entry, "docs_url")

	buf.Reset()
	l.LogError(context.Background(), "nothing", nil)
	assert.Zero(t, buf.Len())
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, LevelInfo)

	assert.Same(t, l, l.WithContext(context.Background()))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	l.WithContext(ctx).Info("traced")

	entry := lastEntry(t, &buf)
	assert.Equal(t, sc.TraceID().String(), entry["trace_id"])
	assert.Equal(t, sc.SpanID().String(), entry["span_id"])
}

func TestDefaultLogger(t *testing.T) {
	assert.NotNil(t, DefaultLogger())

	custom := Discard()
	SetDefaultLogger(custom)
	t.Cleanup(func() { SetDefaultLogger(Default()) })
	assert.Same(t, custom, DefaultLogger())
}
