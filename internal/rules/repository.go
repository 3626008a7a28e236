package rules

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/runeforge/internal/domain"
	rferrors "github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/hashing"
)

// Repository is a validated, read-only rules table. It is safe to share
// between concurrent selections; every accessor returns a copy.
type Repository struct {
	version      string
	weights      Weights
	penalties    Penalties
	alternatives int
	compliance   map[domain.ComplianceTag][]string
	topics       []Topic
	index        map[string]int
	source       string
	fingerprint  string
}

// Load validates cfg and builds a Repository from it. Any problem is
// reported as a ConfigError listing all of them.
func Load(cfg Config) (*Repository, error) {
	if problems := cfg.Check(); len(problems) > 0 {
		return nil, rferrors.NewConfigError(errors.Join(problems...))
	}

	canonical, err := hashing.Canonicalize(cfg)
	if err != nil {
		return nil, fmt.Errorf("canonicalize rules: %w", err)
	}

	r := &Repository{
		version:      cfg.Version,
		weights:      make(Weights, len(Metrics)),
		penalties:    cfg.Penalties,
		alternatives: DefaultAlternatives,
		compliance:   make(map[domain.ComplianceTag][]string, len(cfg.ComplianceRequirements)),
		topics:       make([]Topic, len(cfg.Topics)),
		index:        make(map[string]int, len(cfg.Topics)),
		fingerprint:  hashing.Fingerprint(canonical),
	}

	for _, m := range Metrics {
		r.weights[m] = cfg.Weights[string(m)]
	}
	if cfg.Alternatives != nil {
		r.alternatives = *cfg.Alternatives
	}
	for tag, req := range cfg.ComplianceRequirements {
		r.compliance[domain.ComplianceTag(tag)] = append([]string(nil), req.RequiredFeatures...)
	}
	for i, t := range cfg.Topics {
		r.topics[i] = t.clone()
		r.index[t.Name] = i
	}

	return r, nil
}

// Version returns the table's declared version string.
func (r *Repository) Version() string {
	return r.version
}

// Source returns where the table was loaded from ("builtin" or a path).
func (r *Repository) Source() string {
	return r.source
}

// Fingerprint returns the blake3 digest of the canonical table.
func (r *Repository) Fingerprint() string {
	return r.fingerprint
}

// Weights returns a copy of the metric weights.
func (r *Repository) Weights() Weights {
	out := make(Weights, len(r.weights))
	for k, v := range r.weights {
		out[k] = v
	}
	return out
}

// NewLanguagePenalty returns the per-language polyglot deduction.
func (r *Repository) NewLanguagePenalty() float64 {
	return r.penalties.NewLanguage
}

// Alternatives returns how many runner-ups each decision reports.
func (r *Repository) Alternatives() int {
	return r.alternatives
}

// RequiredFeatures returns the capability features a compliance tag demands.
// Tags without declared requirements return nil.
func (r *Repository) RequiredFeatures(tag domain.ComplianceTag) []string {
	return append([]string(nil), r.compliance[tag]...)
}

// Topics returns the topics in declaration order.
func (r *Repository) Topics() []Topic {
	out := make([]Topic, len(r.topics))
	for i, t := range r.topics {
		out[i] = t.clone()
	}
	return out
}

// TopicNames returns topic names in declaration order.
func (r *Repository) TopicNames() []string {
	names := make([]string, len(r.topics))
	for i, t := range r.topics {
		names[i] = t.Name
	}
	return names
}

// Topic looks up a topic by name.
func (r *Repository) Topic(name string) (Topic, bool) {
	i, ok := r.index[name]
	if !ok {
		return Topic{}, false
	}
	return r.topics[i].clone(), true
}

// Candidate looks up a candidate within a topic.
func (r *Repository) Candidate(topic, name string) (Candidate, bool) {
	i, ok := r.index[topic]
	if !ok {
		return Candidate{}, false
	}
	for _, c := range r.topics[i].Candidates {
		if c.Name == name {
			return c.clone(), true
		}
	}
	return Candidate{}, false
}

// Config returns the table in its textual form, e.g. for printing.
func (r *Repository) Config() Config {
	return r.exportConfig()
}

func (r *Repository) exportConfig() Config {
	weights := make(map[string]float64, len(r.weights))
	for k, v := range r.weights {
		weights[string(k)] = v
	}
	alternatives := r.alternatives
	cfg := Config{
		Version:      r.version,
		Weights:      weights,
		Penalties:    r.penalties,
		Alternatives: &alternatives,
		Topics:       r.Topics(),
	}
	if len(r.compliance) > 0 {
		cfg.ComplianceRequirements = make(map[string]ComplianceRequirement, len(r.compliance))
		for tag, features := range r.compliance {
			cfg.ComplianceRequirements[string(tag)] = ComplianceRequirement{
				RequiredFeatures: append([]string(nil), features...),
			}
		}
	}
	return cfg
}
