package plan

import (
	"github.com/felixgeelhaar/runeforge/internal/hashing"
)

// hashInput is the canonical content a plan hash covers. The seed is only
// part of it when the seed actually decided something.
type hashInput struct {
	Decisions []Decision `json:"decisions"`
	Stack     Stack      `json:"stack"`
	Seed      *uint64    `json:"seed,omitempty"`
}

// ComputeHash returns the plan hash over decisions and stack. When seeded is
// true the plan's seed is included too; callers pass true when a tie-break
// influenced the ordering of any topic.
func (p *StackPlan) ComputeHash(seeded bool) (string, error) {
	in := hashInput{Decisions: p.Decisions, Stack: p.Stack}
	if seeded {
		seed := p.Meta.Seed
		in.Seed = &seed
	}
	return hashing.HashValue(in)
}

// VerifyHash reports whether meta.plan_hash matches the plan's content in
// either its seeded or unseeded form.
func (p *StackPlan) VerifyHash() (bool, error) {
	for _, seeded := range []bool{false, true} {
		h, err := p.ComputeHash(seeded)
		if err != nil {
			return false, err
		}
		if h == p.Meta.PlanHash {
			return true, nil
		}
	}
	return false, nil
}
