package engine

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/domain"
	rferrors "github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/plan"
	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// assemble builds the plan from per-topic outcomes in declaration order,
// fills in the estimate and hashes, and checks the plan's invariants.
func assemble(bp *blueprint.Blueprint, topics []rules.Topic, outcomes []outcome, anchor domain.Language, seed uint64, anyTie bool) (*plan.StackPlan, error) {
	p := &plan.StackPlan{
		Decisions: make([]plan.Decision, 0, len(topics)),
		Stack:     plan.Stack{Choices: make(map[string]string, len(topics))},
		Meta:      plan.Meta{Seed: seed},
	}

	project := slug(bp.ProjectName)
	for i, topic := range topics {
		o := outcomes[i]
		p.Decisions = append(p.Decisions, o.decision)
		p.Stack.Choices[topic.Name] = o.decision.Choice
		p.Estimated.MonthlyCostUSD += o.ranked[0].Candidate.MonthlyCostUSD

		if bp.Polyglot() && topic.ServiceKind != "" {
			p.Stack.Services = append(p.Stack.Services, newService(project, topic, o.ranked[0].Candidate, anchor))
		}
	}

	if bp.HasCostCeiling() && p.Estimated.MonthlyCostUSD > bp.CostCeiling() {
		p.Estimated.Notes = append(p.Estimated.Notes, fmt.Sprintf(
			"Estimated $%.2f/month exceeds the $%.2f budget; the ceiling only bounds each topic's cheapest option",
			p.Estimated.MonthlyCostUSD, bp.CostCeiling()))
	}

	bpHash, err := bp.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash blueprint: %w", err)
	}
	p.Meta.BlueprintHash = bpHash

	planHash, err := p.ComputeHash(anyTie)
	if err != nil {
		return nil, fmt.Errorf("hash plan: %w", err)
	}
	p.Meta.PlanHash = planHash

	if err := p.Validate(); err != nil {
		return nil, rferrors.NewPlanInvariantError(err.Error())
	}
	return p, nil
}

func newService(project string, topic rules.Topic, cand rules.Candidate, anchor domain.Language) plan.Service {
	lang := cand.Language()
	if lang == "" {
		lang = anchor
	}
	return plan.Service{
		Name:      project + "-" + slug(topic.Name),
		Kind:      topic.ServiceKind,
		Language:  lang.String(),
		Framework: cand.Name,
		Runtime:   cand.Runtime,
	}
}

// slug lowercases s and replaces runs of non-alphanumerics with a dash.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
