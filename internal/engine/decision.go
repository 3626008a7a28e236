package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/domain"
	"github.com/felixgeelhaar/runeforge/internal/plan"
	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// latencySLOThreshold is the slo metric above which a candidate is called out
// for latency-sensitive workloads.
const latencySLOThreshold = 0.85

var metricLabels = map[rules.Metric]string{
	rules.MetricQuality:  "Strong engineering quality",
	rules.MetricSLO:      "High reliability",
	rules.MetricCost:     "Cost-efficient",
	rules.MetricSecurity: "Strong security posture",
	rules.MetricOps:      "Low operational burden",
}

// buildDecision turns a ranked topic into a plan decision.
func buildDecision(bp *blueprint.Blueprint, topic rules.Topic, ranked []Ranked, alternatives int, anchor domain.Language) plan.Decision {
	choice := ranked[0]

	alts := make([]string, 0, alternatives)
	for _, r := range ranked[1:] {
		if len(alts) == alternatives {
			break
		}
		alts = append(alts, r.Name)
	}

	return plan.Decision{
		Topic:        topic.Name,
		Choice:       choice.Name,
		Reasons:      reasons(bp, topic, choice, anchor),
		Alternatives: alts,
		Score:        choice.Score(),
	}
}

func reasons(bp *blueprint.Blueprint, topic rules.Topic, choice Ranked, anchor domain.Language) []string {
	out := make([]string, 0, 5)
	for _, c := range topContributions(choice.Breakdown, 2) {
		out = append(out, fmt.Sprintf("%s (%.2f × %.2f = %.3f)", metricLabels[c.Metric], c.Value, c.Weight, c.Weighted))
	}

	cand := choice.Candidate
	if topic.LanguageBearing && !topic.LanguageAnchor && anchor != "" {
		switch lang := cand.Language(); {
		case choice.Breakdown.Penalty > 0:
			out = append(out, fmt.Sprintf("Adds %s alongside %s (-%.3f polyglot penalty)",
				choice.Breakdown.NewLanguage, anchor, choice.Breakdown.Penalty))
		case lang == anchor:
			out = append(out, fmt.Sprintf("Compatible with %s language", anchor))
		}
	}

	if bp.TrafficProfile.LatencySensitive && cand.Metric(rules.MetricSLO) > latencySLOThreshold {
		out = append(out, "Excellent performance for latency-sensitive workload")
	}

	if topic.ComplianceScoped && len(bp.Constraints.Compliance) > 0 {
		tags := domain.SortedTags(bp.Constraints.Compliance)
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.String()
		}
		out = append(out, fmt.Sprintf("Meets %s compliance requirements", strings.Join(names, ", ")))
	}

	if len(cand.Notes) > 0 {
		out = append(out, cand.Notes[0])
	}
	return out
}

// topContributions returns the n largest positive weighted contributions.
// Equal contributions keep metric declaration order.
func topContributions(b Breakdown, n int) []Contribution {
	sorted := make([]Contribution, 0, len(b.Contributions))
	for _, c := range b.Contributions {
		if c.Weighted > 0 {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weighted > sorted[j].Weighted
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
