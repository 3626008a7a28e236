package domain

import (
	"fmt"
	"sort"
)

// ComplianceTag names a regulatory or supply-chain requirement.
type ComplianceTag string

// Known compliance tags
const (
	ComplianceAuditLog ComplianceTag = "audit-log"
	ComplianceSBOM     ComplianceTag = "sbom"
	CompliancePCI      ComplianceTag = "pci"
	ComplianceSOX      ComplianceTag = "sox"
	ComplianceHIPAA    ComplianceTag = "hipaa"
)

// AllComplianceTags returns every known tag in a stable order
func AllComplianceTags() []ComplianceTag {
	return []ComplianceTag{ComplianceAuditLog, ComplianceSBOM, CompliancePCI, ComplianceSOX, ComplianceHIPAA}
}

// NewComplianceTag creates a new ComplianceTag value object with validation
func NewComplianceTag(value string) (ComplianceTag, error) {
	c := ComplianceTag(value)
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate checks if the tag is known
func (c ComplianceTag) Validate() error {
	switch c {
	case ComplianceAuditLog, ComplianceSBOM, CompliancePCI, ComplianceSOX, ComplianceHIPAA:
		return nil
	default:
		return fmt.Errorf("invalid compliance tag %q: must be one of audit-log, sbom, pci, sox, hipaa", string(c))
	}
}

// String returns the string representation
func (c ComplianceTag) String() string {
	return string(c)
}

// SortedTags returns a deduplicated, sorted copy of tags.
func SortedTags(tags []ComplianceTag) []ComplianceTag {
	seen := make(map[ComplianceTag]struct{}, len(tags))
	out := make([]ComplianceTag, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
