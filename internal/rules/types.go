// Package rules holds the immutable scoring table the selection engine works
// from: metric weights, penalties, compliance requirements and the ordered
// per-topic candidate lists.
package rules

import (
	"github.com/felixgeelhaar/runeforge/internal/domain"
)

// Metric names a scored quality of a candidate.
type Metric string

// Scored metrics
const (
	MetricQuality  Metric = "quality"
	MetricSLO      Metric = "slo"
	MetricCost     Metric = "cost"
	MetricSecurity Metric = "security"
	MetricOps      Metric = "ops"
)

// Metrics lists every metric in declaration order. Reason generation breaks
// contribution ties in this order.
var Metrics = []Metric{MetricQuality, MetricSLO, MetricCost, MetricSecurity, MetricOps}

// DefaultAlternatives is the number of runner-up candidates reported per topic
// when the table does not say otherwise.
const DefaultAlternatives = 3

// WeightTolerance is the allowed drift of the weight sum from 1.0.
const WeightTolerance = 1e-9

// Weights maps each metric to its share of the score.
type Weights map[Metric]float64

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	var sum float64
	for _, m := range Metrics {
		sum += w[m]
	}
	return sum
}

// Config is the textual form of a rules table, as read from YAML.
type Config struct {
	Version                string                           `yaml:"version" json:"version"`
	Weights                map[string]float64               `yaml:"weights" json:"weights"`
	Penalties              Penalties                        `yaml:"penalties" json:"penalties"`
	Alternatives           *int                             `yaml:"alternatives,omitempty" json:"alternatives,omitempty"`
	ComplianceRequirements map[string]ComplianceRequirement `yaml:"compliance_requirements,omitempty" json:"compliance_requirements,omitempty"`
	Topics                 []Topic                          `yaml:"topics" json:"topics"`
}

// Penalties are score deductions for cross-cutting costs.
type Penalties struct {
	// NewLanguage is deducted once per language a candidate adds beyond the
	// plan's anchor language in polyglot mode.
	NewLanguage float64 `yaml:"new_language" json:"new_language"`
}

// ComplianceRequirement lists the capability features a compliance tag demands.
type ComplianceRequirement struct {
	RequiredFeatures []string `yaml:"required_features" json:"required_features"`
}

// Topic is a technology category with its candidates and selection flags.
type Topic struct {
	Name string `yaml:"name" json:"name"`

	// LanguageBearing topics are subject to single_language_mode and the
	// polyglot new-language penalty.
	LanguageBearing bool `yaml:"language_bearing,omitempty" json:"language_bearing,omitempty"`

	// LanguageAnchor marks the topic whose choice fixes the plan's primary
	// language. At most one topic may carry it.
	LanguageAnchor bool `yaml:"language_anchor,omitempty" json:"language_anchor,omitempty"`

	// Persistence topics filter on the blueprint's persistence constraint.
	Persistence bool `yaml:"persistence,omitempty" json:"persistence,omitempty"`

	// ComplianceScoped topics must cover every requested compliance tag.
	ComplianceScoped bool `yaml:"compliance_scoped,omitempty" json:"compliance_scoped,omitempty"`

	// ServiceKind, when set, makes the topic's choice a deployable service in
	// polyglot plans.
	ServiceKind string `yaml:"service_kind,omitempty" json:"service_kind,omitempty"`

	Candidates []Candidate `yaml:"candidates" json:"candidates"`
}

// Candidate is one technology option for a topic.
type Candidate struct {
	Name           string             `yaml:"name" json:"name"`
	Requires       Requires           `yaml:"requires,omitempty" json:"requires,omitempty"`
	Metrics        map[Metric]float64 `yaml:"metrics" json:"metrics"`
	Regions        []string           `yaml:"regions" json:"regions"`
	Notes          []string           `yaml:"notes,omitempty" json:"notes,omitempty"`
	MonthlyCostUSD float64            `yaml:"monthly_cost_usd" json:"monthly_cost_usd"`
	Persistence    domain.Persistence `yaml:"persistence,omitempty" json:"persistence,omitempty"`
	Compliance     []string           `yaml:"compliance,omitempty" json:"compliance,omitempty"`
	Runtime        string             `yaml:"runtime,omitempty" json:"runtime,omitempty"`
}

// Requires lists what a candidate depends on.
type Requires struct {
	Language string `yaml:"language,omitempty" json:"language,omitempty"`
}

// Language returns the candidate's normalised language, or "" if it has none.
func (c Candidate) Language() domain.Language {
	if c.Requires.Language == "" {
		return ""
	}
	return domain.NormalizeLanguage(c.Requires.Language)
}

// Metric returns the candidate's value for m; absent metrics count as 0.
func (c Candidate) Metric(m Metric) float64 {
	return c.Metrics[m]
}

// HasFeature reports whether the candidate declares a compliance capability.
func (c Candidate) HasFeature(feature string) bool {
	for _, f := range c.Compliance {
		if f == feature {
			return true
		}
	}
	return false
}

// ServesAnyRegion reports whether the candidate is available everywhere.
func (c Candidate) ServesAnyRegion() bool {
	for _, r := range c.Regions {
		if r == "*" || r == "global" {
			return true
		}
	}
	return false
}

func (c Candidate) clone() Candidate {
	out := c
	out.Metrics = make(map[Metric]float64, len(c.Metrics))
	for k, v := range c.Metrics {
		out.Metrics[k] = v
	}
	out.Regions = append([]string(nil), c.Regions...)
	out.Notes = append([]string(nil), c.Notes...)
	out.Compliance = append([]string(nil), c.Compliance...)
	return out
}

func (t Topic) clone() Topic {
	out := t
	out.Candidates = make([]Candidate, len(t.Candidates))
	for i, c := range t.Candidates {
		out.Candidates[i] = c.clone()
	}
	return out
}
