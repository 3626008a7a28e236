package plan

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/runeforge/internal/schema"
)

var hashPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// Validate checks the plan's internal invariants. A failure means the engine
// produced something inconsistent, not that the input was wrong.
func (p *StackPlan) Validate() error {
	if len(p.Decisions) == 0 {
		return fmt.Errorf("plan must have at least one decision")
	}

	topics := make(map[string]bool, len(p.Decisions))
	for i, d := range p.Decisions {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("decision at index %d (%s) is invalid: %w", i, d.Topic, err)
		}
		if topics[d.Topic] {
			return fmt.Errorf("duplicate decision for topic %q", d.Topic)
		}
		topics[d.Topic] = true

		if got, ok := p.Stack.Choices[d.Topic]; !ok || got != d.Choice {
			return fmt.Errorf("stack.%s = %q does not match decision choice %q", d.Topic, got, d.Choice)
		}
	}

	for topic := range p.Stack.Choices {
		if !topics[topic] {
			return fmt.Errorf("stack.%s has no matching decision", topic)
		}
	}

	for i, svc := range p.Stack.Services {
		if strings.TrimSpace(svc.Name) == "" {
			return fmt.Errorf("service at index %d has no name", i)
		}
		if !p.hasFramework(svc.Framework) {
			return fmt.Errorf("service %q framework %q is not a chosen candidate", svc.Name, svc.Framework)
		}
	}

	cost := p.Estimated.MonthlyCostUSD
	if math.IsNaN(cost) || math.IsInf(cost, 0) || cost < 0 {
		return fmt.Errorf("estimated.monthly_cost_usd must be non-negative, got %v", cost)
	}

	if !hashPattern.MatchString(p.Meta.BlueprintHash) {
		return fmt.Errorf("meta.blueprint_hash %q is not a sha256 digest", p.Meta.BlueprintHash)
	}
	if !hashPattern.MatchString(p.Meta.PlanHash) {
		return fmt.Errorf("meta.plan_hash %q is not a sha256 digest", p.Meta.PlanHash)
	}

	return nil
}

func (p *StackPlan) hasFramework(name string) bool {
	for _, d := range p.Decisions {
		if d.Choice == name {
			return true
		}
	}
	return false
}

// Validate checks a single decision
func (d *Decision) Validate() error {
	if strings.TrimSpace(d.Topic) == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if strings.TrimSpace(d.Choice) == "" {
		return fmt.Errorf("choice cannot be empty")
	}
	if math.IsNaN(d.Score) || math.IsInf(d.Score, 0) {
		return fmt.Errorf("score must be finite, got %v", d.Score)
	}

	seen := make(map[string]bool, len(d.Alternatives))
	for _, alt := range d.Alternatives {
		if alt == d.Choice {
			return fmt.Errorf("alternatives include the choice %q", d.Choice)
		}
		if seen[alt] {
			return fmt.Errorf("alternative %q listed more than once", alt)
		}
		seen[alt] = true
	}
	return nil
}

// ValidateSchema checks the plan against the StackPlan schema.
func (p *StackPlan) ValidateSchema() error {
	return schema.ValidatePlan(p)
}
