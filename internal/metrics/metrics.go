// Package metrics exposes runeforge's Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/runeforge/internal/engine"
	"github.com/felixgeelhaar/runeforge/internal/errors"
)

// Selection outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeNoEligible = "no_eligible"
	OutcomeCancelled  = "cancelled"
	OutcomeInvariant  = "invariant"
	OutcomeError      = "error"
)

// Metrics holds all Prometheus metrics for runeforge
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// Document validation metrics
	Validations *prometheus.CounterVec

	// Selection metrics
	Selections        *prometheus.CounterVec
	SelectionDuration prometheus.Histogram
	Rejections        *prometheus.CounterVec
	TieGroups         prometheus.Counter

	// Server metrics
	HTTPRequests *prometheus.CounterVec
	PlanCache    *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runeforge_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "runeforge_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runeforge_validations_total",
				Help: "Total number of blueprint and plan validations",
			},
			[]string{"document", "valid"},
		),

		Selections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runeforge_selections_total",
				Help: "Total number of stack selections by outcome",
			},
			[]string{"outcome"},
		),
		SelectionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "runeforge_selection_duration_seconds",
				Help:    "Stack selection duration in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runeforge_constraint_rejections_total",
				Help: "Total number of candidates excluded, by constraint rule",
			},
			[]string{"rule"},
		),
		TieGroups: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "runeforge_tie_groups_total",
				Help: "Total number of score tie groups resolved by the seeded key",
			},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runeforge_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		PlanCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runeforge_plan_cache_lookups_total",
				Help: "Total number of server plan cache lookups",
			},
			[]string{"result"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runeforge_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// RecordCommand records one CLI command run.
func (m *Metrics) RecordCommand(command string, d time.Duration, err error) {
	m.CommandExecutions.WithLabelValues(command, boolLabel(err == nil)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
	if err != nil {
		m.RecordError(err, command)
	}
}

// RecordValidation records a schema or invariant check of a document.
func (m *Metrics) RecordValidation(document string, err error) {
	m.Validations.WithLabelValues(document, boolLabel(err == nil)).Inc()
}

// RecordSelection records a finished selection. trace may be nil when the
// selection failed before filtering.
func (m *Metrics) RecordSelection(trace *engine.Trace, d time.Duration, err error) {
	m.Selections.WithLabelValues(Outcome(err)).Inc()
	m.SelectionDuration.Observe(d.Seconds())

	if trace == nil {
		return
	}
	for _, t := range trace.Topics {
		for _, r := range t.Rejections {
			m.Rejections.WithLabelValues(string(r.Rule)).Inc()
		}
	}
	m.TieGroups.Add(float64(trace.TieGroups()))
}

// RecordError counts a coded error. Uncoded errors count as "unknown".
func (m *Metrics) RecordError(err error, component string) {
	code, ok := errors.CodeOf(err)
	if !ok {
		code = "unknown"
	}
	m.Errors.WithLabelValues(string(code), component).Inc()
}

// Outcome maps a selection error to its outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch {
	case errors.HasCode(err, errors.ErrCodeNoEligibleCandidate):
		return OutcomeNoEligible
	case errors.HasCode(err, errors.ErrCodeSelectionCancelled):
		return OutcomeCancelled
	case errors.HasCode(err, errors.ErrCodePlanInvariant):
		return OutcomeInvariant
	default:
		return OutcomeError
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
