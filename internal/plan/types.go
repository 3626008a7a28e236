// Package plan defines the stack plan produced by a selection, with its
// invariant checks, schema validation, hashing and file encoding.
package plan

import (
	"encoding/json"
	"fmt"
	"sort"
)

// StackPlan is the complete result of a selection.
type StackPlan struct {
	Decisions []Decision `json:"decisions" yaml:"decisions"`
	Stack     Stack      `json:"stack" yaml:"stack"`
	Estimated Estimated  `json:"estimated" yaml:"estimated"`
	Meta      Meta       `json:"meta" yaml:"meta"`
}

// Decision is the chosen candidate for one topic.
type Decision struct {
	Topic        string   `json:"topic" yaml:"topic"`
	Choice       string   `json:"choice" yaml:"choice"`
	Reasons      []string `json:"reasons" yaml:"reasons"`
	Alternatives []string `json:"alternatives" yaml:"alternatives"`
	Score        float64  `json:"score" yaml:"score"`
}

// Stack is the resolved technology per topic. It serialises flat, one field
// per topic, plus a services list when the plan is polyglot.
type Stack struct {
	Choices  map[string]string
	Services []Service
}

// Service is a deployable unit in a polyglot plan.
type Service struct {
	Name      string `json:"name" yaml:"name"`
	Kind      string `json:"kind" yaml:"kind"`
	Language  string `json:"language" yaml:"language"`
	Framework string `json:"framework" yaml:"framework"`
	Runtime   string `json:"runtime" yaml:"runtime"`
}

// Estimated holds the monthly cost estimate.
type Estimated struct {
	MonthlyCostUSD float64  `json:"monthly_cost_usd" yaml:"monthly_cost_usd"`
	Notes          []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Meta carries the determinism metadata.
type Meta struct {
	Seed          uint64 `json:"seed" yaml:"seed"`
	BlueprintHash string `json:"blueprint_hash" yaml:"blueprint_hash"`
	PlanHash      string `json:"plan_hash" yaml:"plan_hash"`
}

const servicesKey = "services"

// Decision returns the decision for a topic.
func (p *StackPlan) Decision(topic string) (Decision, bool) {
	for _, d := range p.Decisions {
		if d.Topic == topic {
			return d, true
		}
	}
	return Decision{}, false
}

// Topics returns the stack's topics in sorted order.
func (s Stack) Topics() []string {
	topics := make([]string, 0, len(s.Choices))
	for t := range s.Choices {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func (s Stack) flatten() map[string]any {
	out := make(map[string]any, len(s.Choices)+1)
	for topic, choice := range s.Choices {
		out[topic] = choice
	}
	if len(s.Services) > 0 {
		out[servicesKey] = s.Services
	}
	return out
}

// MarshalJSON implements json.Marshaler
func (s Stack) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.flatten())
}

// MarshalYAML implements yaml.Marshaler
func (s Stack) MarshalYAML() (any, error) {
	return s.flatten(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Stack) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Choices = make(map[string]string, len(raw))
	s.Services = nil
	for key, value := range raw {
		if key == servicesKey {
			if err := json.Unmarshal(value, &s.Services); err != nil {
				return fmt.Errorf("stack.services: %w", err)
			}
			continue
		}
		var choice string
		if err := json.Unmarshal(value, &choice); err != nil {
			return fmt.Errorf("stack.%s: %w", key, err)
		}
		s.Choices[key] = choice
	}
	return nil
}
