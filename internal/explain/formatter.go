package explain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/runeforge/internal/engine"
)

const ruleWidth = 70

// Formatter formats selection explanations for display
type Formatter struct {
	colorEnabled bool

	title   lipgloss.Style
	header  lipgloss.Style
	chosen  lipgloss.Style
	muted   lipgloss.Style
	failure lipgloss.Style
}

// NewFormatter creates a new formatter. With color disabled every style
// renders its input unchanged.
func NewFormatter(colorEnabled bool) *Formatter {
	f := &Formatter{
		colorEnabled: colorEnabled,
		title:        lipgloss.NewStyle(),
		header:       lipgloss.NewStyle(),
		chosen:       lipgloss.NewStyle(),
		muted:        lipgloss.NewStyle(),
		failure:      lipgloss.NewStyle(),
	}
	if colorEnabled {
		f.title = f.title.Bold(true).Foreground(lipgloss.Color("205"))
		f.header = f.header.Bold(true).Foreground(lipgloss.Color("99"))
		f.chosen = f.chosen.Foreground(lipgloss.Color("46"))
		f.muted = f.muted.Foreground(lipgloss.Color("241"))
		f.failure = f.failure.Bold(true).Foreground(lipgloss.Color("196"))
	}
	return f
}

// FormatText formats an explanation as human-readable text
func (f *Formatter) FormatText(e *Explanation) string {
	var b strings.Builder

	b.WriteString(f.title.Render("Stack Selection: "+e.Project) + "\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	fmt.Fprintf(&b, "Seed:        %d\n", e.Seed)
	fmt.Fprintf(&b, "Rules:       %s (%s)\n", e.RulesSource, e.RulesFingerprint)
	fmt.Fprintf(&b, "Language:    %s\n", e.Mode)
	if e.Anchor != "" {
		fmt.Fprintf(&b, "Anchor:      %s\n", e.Anchor)
	}
	if e.PlanHash != "" {
		fmt.Fprintf(&b, "Plan hash:   %s\n", e.PlanHash)
	}
	b.WriteString("\n")

	for _, t := range e.Topics {
		f.writeTopic(&b, t)
	}

	b.WriteString(f.header.Render("Summary") + "\n")
	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	fmt.Fprintf(&b, "  Topics decided:  %d/%d\n", e.Summary.Decided, e.Summary.Topics)
	fmt.Fprintf(&b, "  Rejections:      %d\n", e.Summary.Rejections)
	fmt.Fprintf(&b, "  Tie groups:      %d\n", e.Summary.TieGroups)
	if len(e.Summary.Failed) == 0 {
		fmt.Fprintf(&b, "  Monthly cost:    $%.2f\n", e.Summary.MonthlyCostUSD)
	}
	if e.Summary.CostCeiling != nil {
		fmt.Fprintf(&b, "  Cost ceiling:    $%.2f\n", *e.Summary.CostCeiling)
	}
	if len(e.Summary.Failed) > 0 {
		b.WriteString(f.failure.Render("  No eligible candidate: "+strings.Join(e.Summary.Failed, ", ")) + "\n")
	}

	return b.String()
}

func (f *Formatter) writeTopic(b *strings.Builder, t Topic) {
	b.WriteString(f.header.Render(t.Name) + "\n")
	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	if t.Budget != nil {
		fmt.Fprintf(b, "  Budget: $%.2f\n", *t.Budget)
	}

	for _, c := range t.Candidates {
		line := fmt.Sprintf("  %d. %-22s %7.4f", c.Rank, c.Name, c.Score)
		if c.Tied {
			line += "  (tied)"
		}
		if c.Rank == 1 {
			line = f.chosen.Render(line)
		}
		b.WriteString(line + "\n")
		b.WriteString(f.muted.Render("     "+breakdown(c.Breakdown)) + "\n")
	}

	if len(t.Rejections) > 0 {
		b.WriteString("  Rejected:\n")
		for _, r := range t.Rejections {
			b.WriteString(f.muted.Render(fmt.Sprintf("    - %s [%s] %s", r.Candidate, r.Rule, r.Detail)) + "\n")
		}
	}
	if t.Failed {
		b.WriteString(f.failure.Render("  No eligible candidate") + "\n")
	}
	b.WriteString("\n")
}

// FormatJSON formats an explanation as JSON
func (f *Formatter) FormatJSON(e *Explanation) (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// FormatCompact formats an explanation in a compact summary format
func (f *Formatter) FormatCompact(e *Explanation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (seed %d)\n", e.Project, e.Seed)
	fmt.Fprintf(&b, "Decided: %d/%d | Rejections: %d | Ties: %d\n\n",
		e.Summary.Decided, e.Summary.Topics, e.Summary.Rejections, e.Summary.TieGroups)

	for _, t := range e.Topics {
		switch {
		case t.Choice != "":
			fmt.Fprintf(&b, "  %-12s -> %s (%.4f)\n", t.Name, t.Choice, t.Candidates[0].Score)
		case t.Failed:
			fmt.Fprintf(&b, "  %-12s -> none\n", t.Name)
		default:
			fmt.Fprintf(&b, "  %-12s -> not scored\n", t.Name)
		}
	}

	return b.String()
}

// FormatMarkdown formats an explanation as Markdown
func (f *Formatter) FormatMarkdown(e *Explanation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Stack Selection: %s\n\n", e.Project)
	fmt.Fprintf(&b, "**Seed:** %d  \n", e.Seed)
	fmt.Fprintf(&b, "**Rules:** %s  \n", e.RulesFingerprint)
	if e.Anchor != "" {
		fmt.Fprintf(&b, "**Anchor:** %s  \n", e.Anchor)
	}
	b.WriteString("\n")

	for _, t := range e.Topics {
		fmt.Fprintf(&b, "## %s\n\n", t.Name)
		if len(t.Candidates) > 0 {
			b.WriteString("| Rank | Candidate | Score | Tied |\n")
			b.WriteString("|------|-----------|-------|------|\n")
			for _, c := range t.Candidates {
				fmt.Fprintf(&b, "| %d | %s | %.4f | %v |\n", c.Rank, c.Name, c.Score, c.Tied)
			}
			b.WriteString("\n")
		}
		for _, r := range t.Rejections {
			fmt.Fprintf(&b, "- ~~%s~~ (%s): %s\n", r.Candidate, r.Rule, r.Detail)
		}
		if len(t.Rejections) > 0 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func breakdown(bd engine.Breakdown) string {
	parts := make([]string, 0, len(bd.Contributions)+1)
	for _, c := range bd.Contributions {
		parts = append(parts, fmt.Sprintf("%s %.2f×%.2f", c.Metric, c.Weight, c.Value))
	}
	if bd.Penalty > 0 {
		parts = append(parts, fmt.Sprintf("-%.3f %s", bd.Penalty, bd.NewLanguage))
	}
	return strings.Join(parts, "  ")
}
