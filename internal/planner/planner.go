// Package planner runs selections for the CLI and the HTTP server. It wraps
// the engine with tracing, metrics, logging, output validation and the
// optional plan archive.
package planner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/runeforge/internal/archive"
	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/engine"
	"github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/log"
	"github.com/felixgeelhaar/runeforge/internal/metrics"
	"github.com/felixgeelhaar/runeforge/internal/rules"
	"github.com/felixgeelhaar/runeforge/internal/telemetry"
)

// Config wires a Planner. Rules is required; everything else is optional.
type Config struct {
	Rules   *rules.Repository
	Metrics *metrics.Metrics
	Logger  *log.Logger
	Archive *archive.Store

	// Parallel scores topics concurrently.
	Parallel bool

	// Strict checks every plan against the StackPlan schema.
	Strict bool
}

// Planner runs selections against one rules table.
type Planner struct {
	cfg Config
}

// New creates a Planner.
func New(cfg Config) *Planner {
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Planner{cfg: cfg}
}

// Rules returns the rules table the planner selects from
func (p *Planner) Rules() *rules.Repository {
	return p.cfg.Rules
}

// Plan selects a stack for bp. On a failed selection the returned result
// still carries the trace when filtering ran.
func (p *Planner) Plan(ctx context.Context, bp *blueprint.Blueprint, seed uint64) (*engine.Result, error) {
	ctx, span := telemetry.StartSelectionSpan(ctx, bp.ProjectName, seed, p.cfg.Rules.Fingerprint())
	defer span.End()
	logger := p.cfg.Logger.WithContext(ctx).With("project", bp.ProjectName, "seed", seed)

	start := time.Now()
	res, err := engine.Evaluate(ctx, bp, p.cfg.Rules, seed, engine.Options{Parallel: p.cfg.Parallel})
	elapsed := time.Since(start)

	if res != nil {
		for _, t := range res.Trace.Topics {
			for _, r := range t.Rejections {
				logger.Debug("candidate rejected", "topic", t.Topic, "candidate", r.Candidate, "rule", r.Rule, "detail", r.Detail)
			}
		}
	}

	if err == nil && p.cfg.Strict {
		err = res.Plan.ValidateSchema()
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.RecordValidation("plan", err)
		}
		if err != nil {
			err = errors.NewPlanSchemaError(err)
			res.Plan = nil
		}
	}

	if p.cfg.Metrics != nil {
		var trace *engine.Trace
		if res != nil {
			trace = &res.Trace
		}
		p.cfg.Metrics.RecordSelection(trace, elapsed, err)
	}

	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithError(err).Warn("selection failed", "duration", elapsed)
		return res, err
	}

	telemetry.RecordSuccess(span,
		attribute.Int("decisions", len(res.Plan.Decisions)),
		attribute.Int("tie_groups", res.Trace.TieGroups()),
	)
	logger.Info("selection finished",
		"plan_hash", res.Plan.Meta.PlanHash,
		"decisions", len(res.Plan.Decisions),
		"tie_groups", res.Trace.TieGroups(),
		"duration", elapsed,
	)
	return res, nil
}

// Archive records a plan when an archive is configured. It reports whether
// the plan was stored.
func (p *Planner) Archive(ctx context.Context, bp *blueprint.Blueprint, res *engine.Result) (bool, error) {
	if p.cfg.Archive == nil || res == nil || res.Plan == nil {
		return false, nil
	}
	entry, err := p.cfg.Archive.Record(ctx, bp.ProjectName, p.cfg.Rules.Fingerprint(), res.Plan)
	if err != nil {
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.RecordError(err, "archive")
		}
		return false, err
	}
	p.cfg.Logger.Debug("plan archived", "id", entry.ID, "plan_hash", entry.PlanHash)
	return true, nil
}
