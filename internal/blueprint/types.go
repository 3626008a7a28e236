// Package blueprint defines the project-requirements document that drives
// stack selection, with its validation and file loading.
package blueprint

import (
	"github.com/felixgeelhaar/runeforge/internal/domain"
	"github.com/felixgeelhaar/runeforge/internal/hashing"
)

// Blueprint is a validated description of what a project needs.
type Blueprint struct {
	ProjectName        string              `json:"project_name" yaml:"project_name"`
	Goals              []string            `json:"goals" yaml:"goals"`
	Constraints        Constraints         `json:"constraints" yaml:"constraints"`
	TrafficProfile     TrafficProfile      `json:"traffic_profile" yaml:"traffic_profile"`
	Prefs              map[string][]string `json:"prefs,omitempty" yaml:"prefs,omitempty"`
	SingleLanguageMode domain.Language     `json:"single_language_mode,omitempty" yaml:"single_language_mode,omitempty"`
}

// Constraints narrows which candidates are acceptable.
type Constraints struct {
	MonthlyCostUSDMax *float64               `json:"monthly_cost_usd_max,omitempty" yaml:"monthly_cost_usd_max,omitempty"`
	Persistence       domain.Persistence     `json:"persistence,omitempty" yaml:"persistence,omitempty"`
	RegionAllow       []string               `json:"region_allow,omitzero" yaml:"region_allow,omitempty"`
	Compliance        []domain.ComplianceTag `json:"compliance,omitempty" yaml:"compliance,omitempty"`
}

// TrafficProfile describes expected load.
type TrafficProfile struct {
	RPSPeak          float64 `json:"rps_peak" yaml:"rps_peak"`
	Global           bool    `json:"global" yaml:"global"`
	LatencySensitive bool    `json:"latency_sensitive" yaml:"latency_sensitive"`
}

// LanguageMode returns the effective single-language mode; absent means none.
func (b *Blueprint) LanguageMode() domain.Language {
	if b.SingleLanguageMode == "" {
		return domain.LanguageNone
	}
	return domain.NormalizeLanguage(string(b.SingleLanguageMode))
}

// Polyglot reports whether the plan may mix languages.
func (b *Blueprint) Polyglot() bool {
	return !b.LanguageMode().IsLocked()
}

// HasCostCeiling reports whether a monthly budget was given.
func (b *Blueprint) HasCostCeiling() bool {
	return b.Constraints.MonthlyCostUSDMax != nil
}

// CostCeiling returns the monthly budget, or 0 when there is none.
func (b *Blueprint) CostCeiling() float64 {
	if b.Constraints.MonthlyCostUSDMax == nil {
		return 0
	}
	return *b.Constraints.MonthlyCostUSDMax
}

// Preferences returns the ordered preference list for a topic.
func (b *Blueprint) Preferences(topic string) []string {
	return b.Prefs[topic]
}

// Hash returns the canonical sha256 hash of the blueprint. Set fields are
// sorted and deduplicated and an absent language mode hashes as none, so
// blueprints the engine treats alike hash alike.
func (b *Blueprint) Hash() (string, error) {
	return hashing.HashValue(b.canonical())
}

func (b *Blueprint) canonical() *Blueprint {
	c := *b
	c.Constraints.RegionAllow = sortedUnique(b.Constraints.RegionAllow)
	if b.Constraints.Compliance != nil {
		c.Constraints.Compliance = domain.SortedTags(b.Constraints.Compliance)
	}
	c.SingleLanguageMode = b.LanguageMode()
	if len(c.Prefs) == 0 {
		c.Prefs = nil
	}
	return &c
}

// MarshalYAML writes an empty region_allow as [] rather than dropping it,
// since an empty allow list restricts selection to global candidates.
func (c Constraints) MarshalYAML() (any, error) {
	out := struct {
		MonthlyCostUSDMax *float64               `yaml:"monthly_cost_usd_max,omitempty"`
		Persistence       domain.Persistence     `yaml:"persistence,omitempty"`
		RegionAllow       *[]string              `yaml:"region_allow,omitempty"`
		Compliance        []domain.ComplianceTag `yaml:"compliance,omitempty"`
	}{
		MonthlyCostUSDMax: c.MonthlyCostUSDMax,
		Persistence:       c.Persistence,
		Compliance:        c.Compliance,
	}
	if c.RegionAllow != nil {
		regions := c.RegionAllow
		out.RegionAllow = &regions
	}
	return out, nil
}
