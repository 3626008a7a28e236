package engine

import (
	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/domain"
	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// Contribution is one metric's share of a score.
type Contribution struct {
	Metric   rules.Metric `json:"metric"`
	Weight   float64      `json:"weight"`
	Value    float64      `json:"value"`
	Weighted float64      `json:"weighted"`
}

// Breakdown explains how a candidate's score was computed.
type Breakdown struct {
	Contributions []Contribution `json:"contributions"`

	// Penalty is already subtracted from Total.
	Penalty float64 `json:"penalty,omitempty"`

	// NewLanguage is the language the candidate adds to a polyglot plan, if
	// it was penalised for one.
	NewLanguage domain.Language `json:"new_language,omitempty"`

	Total float64 `json:"total"`
}

// Score computes Σ weight·metric − penalty for a candidate. Contributions are
// summed in metric declaration order so the result is bit-for-bit stable.
// The total is not clamped.
func Score(cand rules.Candidate, weights rules.Weights, penalty float64) Breakdown {
	b := Breakdown{
		Contributions: make([]Contribution, 0, len(rules.Metrics)),
		Penalty:       penalty,
	}
	var sum float64
	for _, m := range rules.Metrics {
		w := weights[m]
		v := cand.Metric(m)
		weighted := w * v
		b.Contributions = append(b.Contributions, Contribution{Metric: m, Weight: w, Value: v, Weighted: weighted})
		sum += weighted
	}
	b.Total = sum - penalty
	return b
}

// languagePenalty returns the polyglot deduction for a candidate and the
// language it introduces. Only language-bearing topics of polyglot plans pay
// it, and only once an anchor language has been chosen.
func languagePenalty(bp *blueprint.Blueprint, topic rules.Topic, cand rules.Candidate, anchor domain.Language, perLanguage float64) (float64, domain.Language) {
	if !bp.Polyglot() || anchor == "" || !topic.LanguageBearing {
		return 0, ""
	}
	lang := cand.Language()
	if lang == "" || lang == anchor {
		return 0, ""
	}
	return perLanguage, lang
}

// scoreTopic scores every eligible candidate of a topic.
func scoreTopic(bp *blueprint.Blueprint, repo *rules.Repository, topic rules.Topic, eligible []rules.Candidate, anchor domain.Language) []Ranked {
	weights := repo.Weights()
	perLanguage := repo.NewLanguagePenalty()

	out := make([]Ranked, 0, len(eligible))
	for _, cand := range eligible {
		penalty, lang := languagePenalty(bp, topic, cand, anchor, perLanguage)
		b := Score(cand, weights, penalty)
		b.NewLanguage = lang
		out = append(out, Ranked{Name: cand.Name, Candidate: cand, Breakdown: b})
	}
	return out
}
