package engine

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/domain"
	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// Verdict is the outcome of checking one candidate against the constraints.
type Verdict struct {
	Eligible bool
	Rule     Rule
	Detail   string
}

func eligible() Verdict {
	return Verdict{Eligible: true}
}

func reject(rule Rule, format string, args ...any) Verdict {
	return Verdict{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

// requirement is one capability feature demanded by a requested compliance tag.
type requirement struct {
	tag     domain.ComplianceTag
	feature string
}

// budget is the cost allowance left for a topic during the declaration-order
// walk. An unlimited budget never rejects.
type budget struct {
	limited   bool
	remaining float64
}

func (b budget) allows(cost float64) bool {
	return !b.limited || cost <= b.remaining
}

// constraints is the per-selection view of a blueprint the filter needs.
type constraints struct {
	regions     map[string]bool
	mode        domain.Language
	persistence domain.Persistence
	required    []requirement
}

func newConstraints(bp *blueprint.Blueprint, repo *rules.Repository) constraints {
	c := constraints{
		mode:        bp.LanguageMode(),
		persistence: bp.Constraints.Persistence,
	}
	// nil means unrestricted; an empty list admits only global candidates
	if bp.Constraints.RegionAllow != nil {
		c.regions = make(map[string]bool, len(bp.Constraints.RegionAllow))
		for _, r := range bp.Constraints.RegionAllow {
			c.regions[r] = true
		}
	}
	for _, tag := range domain.SortedTags(bp.Constraints.Compliance) {
		for _, f := range repo.RequiredFeatures(tag) {
			c.required = append(c.required, requirement{tag: tag, feature: f})
		}
	}
	return c
}

// checkCandidate applies every constraint rule to one candidate. The first
// failing rule is reported.
func (c constraints) checkCandidate(topic rules.Topic, cand rules.Candidate, b budget) Verdict {
	if c.regions != nil && !cand.ServesAnyRegion() && !c.servesAllowedRegion(cand) {
		return reject(RuleRegion, "available in [%s], none allowed by region_allow",
			strings.Join(cand.Regions, ", "))
	}

	if c.mode.IsLocked() && topic.LanguageBearing && cand.Language() != c.mode {
		lang := cand.Language()
		if lang == "" {
			lang = "no language"
		}
		return reject(RuleLanguage, "requires %s, single_language_mode is %s", lang, c.mode)
	}

	if topic.Persistence && !cand.Persistence.Satisfies(c.persistence) {
		return reject(RulePersistence, "offers %s persistence, blueprint requires %s",
			orNone(cand.Persistence.String()), c.persistence)
	}

	if topic.ComplianceScoped {
		for _, req := range c.required {
			if !cand.HasFeature(req.feature) {
				return reject(RuleCompliance, "missing %s required by %s", req.feature, req.tag)
			}
		}
	}

	if !b.allows(cand.MonthlyCostUSD) {
		return reject(RuleCostCeiling, "costs $%.2f/month, $%.2f left in budget",
			cand.MonthlyCostUSD, b.remaining)
	}

	return eligible()
}

func (c constraints) servesAllowedRegion(cand rules.Candidate) bool {
	for _, r := range cand.Regions {
		if c.regions[r] {
			return true
		}
	}
	return false
}

// filtered is the result of filtering one topic.
type filtered struct {
	eligible   []rules.Candidate
	rejections []Rejection
}

// minCost returns the cheapest eligible candidate's cost.
func (f filtered) minCost() float64 {
	if len(f.eligible) == 0 {
		return 0
	}
	lowest := f.eligible[0].MonthlyCostUSD
	for _, c := range f.eligible[1:] {
		if c.MonthlyCostUSD < lowest {
			lowest = c.MonthlyCostUSD
		}
	}
	return lowest
}

// filterTopic checks every candidate of a topic, then narrows to the
// blueprint's preferred candidates when at least one of them survived.
func (c constraints) filterTopic(topic rules.Topic, prefs []string, b budget) filtered {
	var out filtered
	for _, cand := range topic.Candidates {
		v := c.checkCandidate(topic, cand, b)
		if !v.Eligible {
			out.rejections = append(out.rejections, Rejection{Candidate: cand.Name, Rule: v.Rule, Detail: v.Detail})
			continue
		}
		out.eligible = append(out.eligible, cand)
	}

	if len(prefs) == 0 || len(out.eligible) == 0 {
		return out
	}

	preferred := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		preferred[p] = true
	}
	var narrowed []rules.Candidate
	for _, cand := range out.eligible {
		if preferred[cand.Name] {
			narrowed = append(narrowed, cand)
		}
	}
	if len(narrowed) == 0 {
		return out
	}
	for _, cand := range out.eligible {
		if !preferred[cand.Name] {
			out.rejections = append(out.rejections, Rejection{
				Candidate: cand.Name,
				Rule:      RulePreference,
				Detail:    fmt.Sprintf("not in prefs.%s", topic.Name),
			})
		}
	}
	out.eligible = narrowed
	return out
}

func orNone(s string) string {
	if s == "" {
		return "no"
	}
	return s
}
