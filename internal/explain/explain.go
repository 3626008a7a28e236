// Package explain turns a selection trace into a per-topic account of how
// each candidate was filtered and scored.
package explain

import (
	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/domain"
	"github.com/felixgeelhaar/runeforge/internal/engine"
	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// Explanation is the complete account of one selection
type Explanation struct {
	Project          string          `json:"project"`
	Seed             uint64          `json:"seed"`
	RulesSource      string          `json:"rules_source"`
	RulesFingerprint string          `json:"rules_fingerprint"`
	Mode             domain.Language `json:"single_language_mode"`
	Anchor           domain.Language `json:"anchor,omitempty"`
	PlanHash         string          `json:"plan_hash,omitempty"`

	Topics  []Topic `json:"topics"`
	Summary Summary `json:"summary"`
}

// Topic explains one topic
type Topic struct {
	Name   string   `json:"name"`
	Choice string   `json:"choice,omitempty"`
	Budget *float64 `json:"budget,omitempty"`

	// Candidates are in final rank order.
	Candidates []Candidate        `json:"candidates"`
	Rejections []engine.Rejection `json:"rejections,omitempty"`
	TieGroups  int                `json:"tie_groups,omitempty"`

	// Failed is set when every candidate was rejected by a constraint.
	Failed bool `json:"failed,omitempty"`
}

// Candidate is one ranked candidate with its score breakdown
type Candidate struct {
	Rank      int              `json:"rank"`
	Name      string           `json:"name"`
	Score     float64          `json:"score"`
	Breakdown engine.Breakdown `json:"breakdown"`
	Tied      bool             `json:"tied,omitempty"`
}

// Summary provides aggregate statistics
type Summary struct {
	Topics         int      `json:"topics"`
	Decided        int      `json:"decided"`
	Failed         []string `json:"failed,omitempty"`
	Rejections     int      `json:"rejections"`
	TieGroups      int      `json:"tie_groups"`
	MonthlyCostUSD float64  `json:"monthly_cost_usd"`
	CostCeiling    *float64 `json:"cost_ceiling,omitempty"`
}

// New builds an explanation from a selection result. It works for failed
// selections too, in which case failing topics have no choice.
func New(bp *blueprint.Blueprint, repo *rules.Repository, res *engine.Result) *Explanation {
	e := &Explanation{
		Project:          bp.ProjectName,
		Seed:             res.Trace.Seed,
		RulesSource:      repo.Source(),
		RulesFingerprint: repo.Fingerprint(),
		Mode:             bp.LanguageMode(),
		Anchor:           res.Trace.Anchor,
		Topics:           make([]Topic, 0, len(res.Trace.Topics)),
	}
	if res.Plan != nil {
		e.PlanHash = res.Plan.Meta.PlanHash
		e.Summary.MonthlyCostUSD = res.Plan.Estimated.MonthlyCostUSD
	}
	if bp.HasCostCeiling() {
		ceiling := bp.CostCeiling()
		e.Summary.CostCeiling = &ceiling
	}

	for _, tt := range res.Trace.Topics {
		t := Topic{
			Name:       tt.Topic,
			Budget:     tt.Budget,
			Candidates: make([]Candidate, 0, len(tt.Ranked)),
			Rejections: tt.Rejections,
			TieGroups:  tt.TieGroups,
		}
		for i, r := range tt.Ranked {
			t.Candidates = append(t.Candidates, Candidate{
				Rank:      i + 1,
				Name:      r.Name,
				Score:     r.Score(),
				Breakdown: r.Breakdown,
				Tied:      r.Tied,
			})
		}
		if len(t.Candidates) > 0 {
			t.Choice = t.Candidates[0].Name
			e.Summary.Decided++
		} else if failed(repo, tt) {
			t.Failed = true
			e.Summary.Failed = append(e.Summary.Failed, tt.Topic)
		}

		e.Summary.Rejections += len(tt.Rejections)
		e.Summary.TieGroups += tt.TieGroups
		e.Topics = append(e.Topics, t)
	}
	e.Summary.Topics = len(e.Topics)
	return e
}

// failed reports whether every candidate of a topic was rejected by a
// constraint. Topics that survived filtering have no ranking when another
// topic failed, since scoring never ran.
func failed(repo *rules.Repository, tt engine.TopicTrace) bool {
	topic, ok := repo.Topic(tt.Topic)
	if !ok {
		return false
	}
	excluded := 0
	for _, r := range tt.Rejections {
		if r.Rule == engine.RulePreference {
			return false
		}
		excluded++
	}
	return excluded == len(topic.Candidates)
}
