package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/felixgeelhaar/runeforge/internal/engine"
	"github.com/felixgeelhaar/runeforge/internal/errors"
)

func TestRecordCommand(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCommand("plan", 10*time.Millisecond, nil)
	m.RecordCommand("plan", 5*time.Millisecond, errors.NewBlueprintNotFoundError("bp.yaml"))

	if got := testutil.ToFloat64(m.CommandExecutions.WithLabelValues("plan", "true")); got != 1 {
		t.Errorf("successful executions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CommandExecutions.WithLabelValues("plan", "false")); got != 1 {
		t.Errorf("failed executions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues("BLUEPRINT-001", "plan")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestRecordSelection(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	trace := &engine.Trace{Topics: []engine.TopicTrace{
		{Topic: "backend", TieGroups: 1, Rejections: []engine.Rejection{
			{Candidate: "Gin", Rule: engine.RuleLanguage},
			{Candidate: "Express", Rule: engine.RuleLanguage},
		}},
		{Topic: "database", Rejections: []engine.Rejection{
			{Candidate: "Redis", Rule: engine.RulePersistence},
		}},
	}}
	m.RecordSelection(trace, time.Millisecond, nil)
	m.RecordSelection(nil, time.Millisecond, context.Canceled)

	tests := []struct {
		name string
		got  prometheus.Collector
		want float64
	}{
		{"success", m.Selections.WithLabelValues(OutcomeSuccess), 1},
		{"error", m.Selections.WithLabelValues(OutcomeError), 1},
		{"language rejections", m.Rejections.WithLabelValues("language"), 2},
		{"persistence rejections", m.Rejections.WithLabelValues("persistence"), 1},
		{"tie groups", m.TieGroups, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.got); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{errors.NewNoEligibleCandidateError(fmt.Errorf("x")), OutcomeNoEligible},
		{fmt.Errorf("wrapped: %w", errors.NewSelectionCancelledError(context.Canceled)), OutcomeCancelled},
		{errors.NewPlanInvariantError("bad"), OutcomeInvariant},
		{fmt.Errorf("boom"), OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Outcome(tt.err); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandlerFor(t *testing.T) {
	reg, m := NewRegistry()
	m.RecordValidation("blueprint", nil)

	srv := httptest.NewServer(HandlerFor(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{
		`runeforge_validations_total{document="blueprint",valid="true"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
