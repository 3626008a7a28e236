package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/domain"
	"github.com/felixgeelhaar/runeforge/internal/plan"
	"github.com/felixgeelhaar/runeforge/internal/rules"
)

func builtinRules(t testing.TB) *rules.Repository {
	t.Helper()
	repo, err := rules.Default()
	require.NoError(t, err)
	return repo
}

func parseRules(t testing.TB, yaml string) *rules.Repository {
	t.Helper()
	repo, err := rules.Parse([]byte(yaml), "test")
	require.NoError(t, err)
	return repo
}

func newBlueprint() *blueprint.Blueprint {
	return &blueprint.Blueprint{
		ProjectName: "Shop Front",
		Goals:       []string{"sell things"},
		TrafficProfile: blueprint.TrafficProfile{
			RPSPeak: 100,
		},
	}
}

func withCeiling(bp *blueprint.Blueprint, usd float64) *blueprint.Blueprint {
	bp.Constraints.MonthlyCostUSDMax = &usd
	return bp
}

func withMode(bp *blueprint.Blueprint, mode domain.Language) *blueprint.Blueprint {
	bp.SingleLanguageMode = mode
	return bp
}

func mustSelect(t testing.TB, bp *blueprint.Blueprint, repo *rules.Repository, seed uint64) *plan.StackPlan {
	t.Helper()
	p, err := Select(context.Background(), bp, repo, seed)
	require.NoError(t, err)
	return p
}

func decision(t testing.TB, p *plan.StackPlan, topic string) plan.Decision {
	t.Helper()
	d, ok := p.Decision(topic)
	require.True(t, ok, "no decision for %s", topic)
	return d
}

// backendOnly holds the two Rust backends with the shared weights.
const backendOnly = `
version: "test"
weights: { quality: 0.30, slo: 0.25, cost: 0.20, security: 0.15, ops: 0.10 }
topics:
  - name: backend
    language_bearing: true
    candidates:
      - name: Actix Web
        requires: { language: rust }
        metrics: { quality: 0.9, slo: 0.9, cost: 0.7, security: 0.8, ops: 0.8 }
        regions: ["*"]
        monthly_cost_usd: 100
      - name: Axum
        requires: { language: rust }
        metrics: { quality: 0.85, slo: 0.85, cost: 0.7, security: 0.8, ops: 0.85 }
        regions: ["*"]
        monthly_cost_usd: 100
`

// tiedRules has two candidates with identical metrics in one topic and a
// clear winner in another.
const tiedRules = `
version: "test"
weights: { quality: 0.30, slo: 0.25, cost: 0.20, security: 0.15, ops: 0.10 }
topics:
  - name: queue
    candidates:
      - name: Alpha
        metrics: { quality: 0.8, slo: 0.8, cost: 0.8, security: 0.8, ops: 0.8 }
        regions: ["*"]
        monthly_cost_usd: 10
      - name: Beta
        metrics: { quality: 0.8, slo: 0.8, cost: 0.8, security: 0.8, ops: 0.8 }
        regions: ["*"]
        monthly_cost_usd: 10
  - name: cache
    candidates:
      - name: Fast
        metrics: { quality: 0.9, slo: 0.9, cost: 0.9, security: 0.9, ops: 0.9 }
        regions: ["*"]
        monthly_cost_usd: 10
      - name: Slow
        metrics: { quality: 0.5, slo: 0.5, cost: 0.5, security: 0.5, ops: 0.5 }
        regions: ["*"]
        monthly_cost_usd: 10
`

// regionalRules lists no wildcard regions anywhere.
const regionalRules = `
version: "test"
weights: { quality: 0.30, slo: 0.25, cost: 0.20, security: 0.15, ops: 0.10 }
topics:
  - name: backend
    candidates:
      - name: Axum
        metrics: { quality: 0.85, slo: 0.85, cost: 0.7, security: 0.8, ops: 0.85 }
        regions: ["eu-west-1"]
        monthly_cost_usd: 100
      - name: Gin
        metrics: { quality: 0.85, slo: 0.85, cost: 0.75, security: 0.8, ops: 0.85 }
        regions: ["us-east-1", "eu-west-1"]
        monthly_cost_usd: 100
  - name: database
    candidates:
      - name: PostgreSQL
        metrics: { quality: 0.9, slo: 0.85, cost: 0.7, security: 0.9, ops: 0.8 }
        regions: ["us-east-1"]
        monthly_cost_usd: 200
  - name: cache
    candidates:
      - name: Redis
        metrics: { quality: 0.9, slo: 0.95, cost: 0.6, security: 0.85, ops: 0.85 }
        regions: ["ap-south-1"]
        monthly_cost_usd: 100
`
