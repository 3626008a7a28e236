package blueprint

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/felixgeelhaar/runeforge/internal/domain"
)

// Validate checks if the Blueprint is valid according to domain rules
func (b *Blueprint) Validate() error {
	if strings.TrimSpace(b.ProjectName) == "" {
		return fmt.Errorf("project_name cannot be empty")
	}

	if len(b.Goals) == 0 {
		return fmt.Errorf("goals cannot be empty")
	}
	for i, goal := range b.Goals {
		if strings.TrimSpace(goal) == "" {
			return fmt.Errorf("goal at index %d cannot be empty", i)
		}
	}

	if err := b.Constraints.Validate(); err != nil {
		return fmt.Errorf("invalid constraints: %w", err)
	}

	if err := b.TrafficProfile.Validate(); err != nil {
		return fmt.Errorf("invalid traffic_profile: %w", err)
	}

	if _, err := domain.NewLanguageMode(string(b.SingleLanguageMode)); err != nil {
		return err
	}

	for topic, names := range b.Prefs {
		if strings.TrimSpace(topic) == "" {
			return fmt.Errorf("prefs topic cannot be empty")
		}
		for i, name := range names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("prefs.%s at index %d cannot be empty", topic, i)
			}
		}
	}

	return nil
}

// Validate checks the constraint values
func (c *Constraints) Validate() error {
	if c.MonthlyCostUSDMax != nil {
		v := *c.MonthlyCostUSDMax
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("monthly_cost_usd_max must be non-negative")
		}
	}

	if c.Persistence != "" {
		if err := c.Persistence.Validate(); err != nil {
			return err
		}
	}

	for i, region := range c.RegionAllow {
		if strings.TrimSpace(region) == "" {
			return fmt.Errorf("region_allow at index %d cannot be empty", i)
		}
	}

	for _, tag := range c.Compliance {
		if err := tag.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the traffic values
func (t *TrafficProfile) Validate() error {
	if math.IsNaN(t.RPSPeak) || math.IsInf(t.RPSPeak, 0) || t.RPSPeak < 0 {
		return fmt.Errorf("rps_peak must be non-negative")
	}
	return nil
}

// normalize puts set-valued fields into a canonical order so that equal
// blueprints hash equally whatever order their sets were written in.
func (b *Blueprint) normalize() {
	b.Constraints.RegionAllow = sortedUnique(b.Constraints.RegionAllow)
	if len(b.Constraints.Compliance) > 0 {
		b.Constraints.Compliance = domain.SortedTags(b.Constraints.Compliance)
	}
	if len(b.Prefs) == 0 {
		b.Prefs = nil
	}
}

// sortedUnique keeps nil and empty apart: an absent list and an empty one
// mean different things to the region filter.
func sortedUnique(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
