package health

import (
	"context"

	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// RulesChecker reports the loaded rules table.
type RulesChecker struct {
	repo *rules.Repository
}

// NewRulesChecker creates a checker for repo.
func NewRulesChecker(repo *rules.Repository) *RulesChecker {
	return &RulesChecker{repo: repo}
}

func (c *RulesChecker) Name() string { return "rules-table" }

func (c *RulesChecker) Check(context.Context) *Result {
	if c.repo == nil {
		return Unhealthy("no rules table loaded")
	}
	topics := c.repo.TopicNames()
	if len(topics) == 0 {
		return Unhealthy("rules table has no topics")
	}
	return Healthy("rules table loaded").
		WithDetail("version", c.repo.Version()).
		WithDetail("fingerprint", c.repo.Fingerprint()).
		WithDetail("topics", len(topics))
}

// Pinger is implemented by stores the server depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports a store as degraded when it stops answering. The
// server still selects plans without it.
type PingChecker struct {
	name   string
	target Pinger
}

// NewPingChecker creates a checker that pings target.
func NewPingChecker(name string, target Pinger) *PingChecker {
	return &PingChecker{name: name, target: target}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) *Result {
	if err := c.target.Ping(ctx); err != nil {
		return Degraded(c.name+" unreachable").WithDetail("error", err.Error())
	}
	return Healthy(c.name + " reachable")
}
