// Package engine selects one technology per topic for a blueprint. A
// selection filters each topic's candidates against the blueprint's
// constraints, scores the survivors, orders ties with a seeded key and
// assembles the result into a hashed StackPlan.
//
// The engine performs no I/O and does not log. The rules repository is only
// read, so one repository may serve any number of concurrent selections.
package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/domain"
	rferrors "github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/plan"
	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// Options tunes how a selection runs. Options never change its result.
type Options struct {
	// Parallel scores the topics after the language anchor concurrently.
	Parallel bool
}

// TopicTrace records how one topic was decided.
type TopicTrace struct {
	Topic string `json:"topic"`

	// Budget is the cost allowance the topic was filtered with, if the
	// blueprint sets a ceiling.
	Budget *float64 `json:"budget,omitempty"`

	Ranked     []Ranked    `json:"ranked"`
	Rejections []Rejection `json:"rejections"`
	TieGroups  int         `json:"tie_groups"`
}

// Trace explains a selection topic by topic.
type Trace struct {
	Seed   uint64          `json:"seed"`
	Anchor domain.Language `json:"anchor,omitempty"`
	Topics []TopicTrace    `json:"topics"`
}

// TieGroups returns the total number of tie groups across topics.
func (t *Trace) TieGroups() int {
	n := 0
	for _, tt := range t.Topics {
		n += tt.TieGroups
	}
	return n
}

// Result is a finished selection.
type Result struct {
	Plan  *plan.StackPlan
	Trace Trace
}

type outcome struct {
	ranked    []Ranked
	tieGroups int
	decision  plan.Decision
}

// Select runs a sequential selection and returns the plan.
func Select(ctx context.Context, bp *blueprint.Blueprint, repo *rules.Repository, seed uint64) (*plan.StackPlan, error) {
	res, err := Evaluate(ctx, bp, repo, seed, Options{})
	if err != nil {
		return nil, err
	}
	return res.Plan, nil
}

// Evaluate runs a selection and returns the plan with its trace. When some
// topic has no eligible candidate the error carries a *NoEligibleCandidate
// and the returned Result still holds the trace, but no plan.
func Evaluate(ctx context.Context, bp *blueprint.Blueprint, repo *rules.Repository, seed uint64, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, rferrors.NewSelectionCancelledError(err)
	}

	topics := repo.Topics()
	res := &Result{Trace: Trace{Seed: seed, Topics: make([]TopicTrace, len(topics))}}

	// Filtering walks topics in declaration order; each topic's budget
	// depends on the cheapest survivor of the topics before it.
	cons := newConstraints(bp, repo)
	eligible := make([][]rules.Candidate, len(topics))
	b := budget{limited: bp.HasCostCeiling(), remaining: bp.CostCeiling()}
	var failures []TopicFailure
	for i, topic := range topics {
		f := cons.filterTopic(topic, bp.Preferences(topic.Name), b)

		tt := &res.Trace.Topics[i]
		tt.Topic = topic.Name
		tt.Rejections = f.rejections
		if b.limited {
			remaining := b.remaining
			tt.Budget = &remaining
		}

		if len(f.eligible) == 0 {
			failures = append(failures, TopicFailure{Topic: topic.Name, Rejections: f.rejections})
			continue
		}
		eligible[i] = f.eligible
		b.remaining -= f.minCost()
	}
	if len(failures) > 0 {
		return res, rferrors.NewNoEligibleCandidateError(&NoEligibleCandidate{Failures: failures})
	}

	outcomes := make([]outcome, len(topics))
	decide := func(i int, anchor domain.Language) {
		ranked := scoreTopic(bp, repo, topics[i], eligible[i], anchor)
		groups := rank(seed, topics[i].Name, ranked)
		outcomes[i] = outcome{
			ranked:    ranked,
			tieGroups: groups,
			decision:  buildDecision(bp, topics[i], ranked, repo.Alternatives(), anchor),
		}
	}

	// The anchor topic is decided first; its choice fixes the language the
	// polyglot penalty is measured against.
	var anchor domain.Language
	anchorIndex := -1
	for i, topic := range topics {
		if topic.LanguageAnchor {
			decide(i, "")
			anchorIndex = i
			anchor = outcomes[i].ranked[0].Candidate.Language()
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, rferrors.NewSelectionCancelledError(err)
	}

	if opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i := range topics {
			if i == anchorIndex {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				decide(i, anchor)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, rferrors.NewSelectionCancelledError(err)
		}
	} else {
		for i := range topics {
			if i == anchorIndex {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, rferrors.NewSelectionCancelledError(err)
			}
			decide(i, anchor)
		}
	}

	anyTie := false
	for i := range topics {
		res.Trace.Topics[i].Ranked = outcomes[i].ranked
		res.Trace.Topics[i].TieGroups = outcomes[i].tieGroups
		if outcomes[i].tieGroups > 0 {
			anyTie = true
		}
	}
	res.Trace.Anchor = anchor

	p, err := assemble(bp, topics, outcomes, anchor, seed, anyTie)
	if err != nil {
		return res, err
	}
	res.Plan = p
	return res, nil
}
