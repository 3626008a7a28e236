package engine

import (
	"fmt"
	"strings"
)

// Rule names the constraint that excluded a candidate.
type Rule string

// Constraint rules, in the order they are checked
const (
	RuleRegion      Rule = "region"
	RuleLanguage    Rule = "language"
	RulePersistence Rule = "persistence"
	RuleCompliance  Rule = "compliance"
	RuleCostCeiling Rule = "cost_ceiling"

	// RulePreference marks an eligible candidate set aside because the
	// blueprint prefers another eligible one. It never empties a topic.
	RulePreference Rule = "preference"
)

// Rejection records why one candidate was excluded.
type Rejection struct {
	Candidate string `json:"candidate"`
	Rule      Rule   `json:"rule"`
	Detail    string `json:"detail"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %s (%s)", r.Candidate, r.Detail, r.Rule)
}

// TopicFailure lists every rejection for a topic that ended up with no
// eligible candidate.
type TopicFailure struct {
	Topic      string      `json:"topic"`
	Rejections []Rejection `json:"rejections"`
}

// NoEligibleCandidate is returned when at least one topic has no candidate
// left after filtering. It lists all failing topics, not only the first.
type NoEligibleCandidate struct {
	Failures []TopicFailure `json:"failures"`
}

// Topics returns the failing topic names in declaration order.
func (e *NoEligibleCandidate) Topics() []string {
	topics := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		topics[i] = f.Topic
	}
	return topics
}

func (e *NoEligibleCandidate) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no eligible candidate for %d topic(s): %s",
		len(e.Failures), strings.Join(e.Topics(), ", "))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s:", f.Topic)
		for _, r := range f.Rejections {
			fmt.Fprintf(&b, "\n    - %s", r)
		}
	}
	return b.String()
}
