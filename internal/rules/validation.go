package rules

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/felixgeelhaar/runeforge/internal/domain"
)

// Check returns every problem found in the table. An empty result means the
// table can be loaded.
func (c *Config) Check() []error {
	var problems []error

	problems = append(problems, c.checkWeights()...)

	if c.Penalties.NewLanguage < 0 || math.IsNaN(c.Penalties.NewLanguage) {
		problems = append(problems, fmt.Errorf("penalties.new_language must be non-negative"))
	}

	if c.Alternatives != nil && *c.Alternatives < 0 {
		problems = append(problems, fmt.Errorf("alternatives must be non-negative"))
	}

	for _, tag := range sortedKeys(c.ComplianceRequirements) {
		req := c.ComplianceRequirements[tag]
		if _, err := domain.NewComplianceTag(tag); err != nil {
			problems = append(problems, fmt.Errorf("compliance_requirements: %w", err))
		}
		for i, f := range req.RequiredFeatures {
			if strings.TrimSpace(f) == "" {
				problems = append(problems, fmt.Errorf("compliance_requirements.%s feature at index %d cannot be empty", tag, i))
			}
		}
	}

	if len(c.Topics) == 0 {
		problems = append(problems, fmt.Errorf("rules must declare at least one topic"))
	}

	seenTopics := make(map[string]bool, len(c.Topics))
	anchors := 0
	for i, t := range c.Topics {
		if strings.TrimSpace(t.Name) == "" {
			problems = append(problems, fmt.Errorf("topic at index %d has no name", i))
			continue
		}
		if t.Name == reservedTopic {
			problems = append(problems, fmt.Errorf("topic name %q is reserved", t.Name))
		}
		if seenTopics[t.Name] {
			problems = append(problems, fmt.Errorf("topic %q declared more than once", t.Name))
		}
		seenTopics[t.Name] = true
		if t.LanguageAnchor {
			anchors++
		}
		problems = append(problems, t.check()...)
	}
	if anchors > 1 {
		problems = append(problems, fmt.Errorf("at most one topic may be the language anchor, found %d", anchors))
	}

	return problems
}

// reservedTopic collides with the services list in a serialised stack.
const reservedTopic = "services"

func (c *Config) checkWeights() []error {
	var problems []error

	for _, name := range sortedKeys(c.Weights) {
		if !isKnownMetric(Metric(name)) {
			problems = append(problems, fmt.Errorf("weights: unknown metric %q", name))
		}
	}

	var sum float64
	for _, m := range Metrics {
		w := c.Weights[string(m)]
		if math.IsNaN(w) || w < 0 || w > 1 {
			problems = append(problems, fmt.Errorf("weights.%s = %v must be within [0,1]", m, w))
		}
		sum += w
	}

	if math.Abs(sum-1.0) > WeightTolerance {
		problems = append(problems, fmt.Errorf("weights sum to %v, must be 1.0 ± %g", sum, WeightTolerance))
	}
	return problems
}

func (t Topic) check() []error {
	var problems []error

	if len(t.Candidates) == 0 {
		problems = append(problems, fmt.Errorf("topic %q has no candidates", t.Name))
	}

	seen := make(map[string]bool, len(t.Candidates))
	for i, c := range t.Candidates {
		where := fmt.Sprintf("topic %q candidate %q", t.Name, c.Name)
		if strings.TrimSpace(c.Name) == "" {
			problems = append(problems, fmt.Errorf("topic %q candidate at index %d has no name", t.Name, i))
			continue
		}
		if seen[c.Name] {
			problems = append(problems, fmt.Errorf("%s declared more than once", where))
		}
		seen[c.Name] = true

		for _, m := range Metrics {
			v, ok := c.Metrics[m]
			if !ok {
				problems = append(problems, fmt.Errorf("%s is missing metric %s", where, m))
				continue
			}
			if math.IsNaN(v) || v < 0 || v > 1 {
				problems = append(problems, fmt.Errorf("%s metric %s = %v must be within [0,1]", where, m, v))
			}
		}
		for _, m := range sortedKeys(c.Metrics) {
			if !isKnownMetric(m) {
				problems = append(problems, fmt.Errorf("%s has unknown metric %q", where, m))
			}
		}

		if len(c.Regions) == 0 {
			problems = append(problems, fmt.Errorf("%s must list at least one region", where))
		}
		if c.MonthlyCostUSD < 0 || math.IsNaN(c.MonthlyCostUSD) {
			problems = append(problems, fmt.Errorf("%s monthly_cost_usd must be non-negative", where))
		}
		if c.Persistence != "" {
			if err := c.Persistence.Validate(); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", where, err))
			}
		}
		if t.Persistence && c.Persistence == "" {
			problems = append(problems, fmt.Errorf("%s must declare persistence", where))
		}
	}

	return problems
}

func isKnownMetric(m Metric) bool {
	for _, known := range Metrics {
		if m == known {
			return true
		}
	}
	return false
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
