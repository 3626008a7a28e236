package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/domain"
	"github.com/felixgeelhaar/runeforge/internal/errors"
)

// blueprintAnswers are the raw wizard inputs.
type blueprintAnswers struct {
	ProjectName      string
	Goals            string // one per line
	CostCeiling      string // empty for none
	Persistence      string
	Regions          string // comma separated
	Compliance       []string
	RPSPeak          string
	Global           bool
	LatencySensitive bool
	Language         string
}

func (a *app) blueprintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blueprint",
		Short: "Create blueprints",
	}

	var out string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Write a blueprint interactively",
		Long: `Ask for a project's goals, constraints and traffic profile and write the
answers as a blueprint YAML file ready for 'runeforge plan'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ans := blueprintAnswers{RPSPeak: "100", Language: string(domain.LanguageNone)}
			if err := blueprintForm(&ans).WithAccessible(a.noColor).RunWithContext(cmd.Context()); err != nil {
				return fmt.Errorf("blueprint wizard: %w", err)
			}
			bp, err := ans.toBlueprint()
			if err != nil {
				return err
			}
			if err := blueprint.NewFileRepository().Save(bp, out); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Blueprint written to %s\nNext: runeforge plan -f %s\n", out, out)
			return nil
		},
	}
	newCmd.Flags().StringVarP(&out, "out", "o", "blueprint.yaml", "file to write")

	cmd.AddCommand(newCmd)
	return cmd
}

func blueprintForm(ans *blueprintAnswers) *huh.Form {
	required := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("this field is required")
		}
		return nil
	}
	number := func(allowEmpty bool) func(string) error {
		return func(s string) error {
			if allowEmpty && strings.TrimSpace(s) == "" {
				return nil
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || v < 0 {
				return fmt.Errorf("enter a non-negative number")
			}
			return nil
		}
	}

	compliance := make([]huh.Option[string], 0, len(domain.AllComplianceTags()))
	for _, tag := range domain.AllComplianceTags() {
		compliance = append(compliance, huh.NewOption(string(tag), string(tag)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project name").Value(&ans.ProjectName).Validate(required),
			huh.NewText().Title("Goals").Description("One per line").Value(&ans.Goals).Validate(required),
		).Title("Project"),
		huh.NewGroup(
			huh.NewInput().Title("Monthly budget (USD)").Description("Leave empty for no ceiling").
				Value(&ans.CostCeiling).Validate(number(true)),
			huh.NewSelect[string]().Title("Persistence").Options(
				huh.NewOption("No preference", ""),
				huh.NewOption("Key/value", string(domain.PersistenceKV)),
				huh.NewOption("Relational", string(domain.PersistenceSQL)),
				huh.NewOption("Both", string(domain.PersistenceBoth)),
			).Value(&ans.Persistence),
			huh.NewInput().Title("Allowed regions").Description("Comma separated, empty for any").Value(&ans.Regions),
			huh.NewMultiSelect[string]().Title("Compliance").Options(compliance...).Value(&ans.Compliance),
		).Title("Constraints"),
		huh.NewGroup(
			huh.NewInput().Title("Peak requests per second").Value(&ans.RPSPeak).Validate(number(false)),
			huh.NewConfirm().Title("Global traffic?").Value(&ans.Global),
			huh.NewConfirm().Title("Latency sensitive?").Value(&ans.LatencySensitive),
			huh.NewSelect[string]().Title("Language").Options(
				huh.NewOption("Any (polyglot)", string(domain.LanguageNone)),
				huh.NewOption("Rust", string(domain.LanguageRust)),
				huh.NewOption("Go", string(domain.LanguageGo)),
				huh.NewOption("TypeScript", string(domain.LanguageTS)),
			).Value(&ans.Language),
		).Title("Traffic"),
	)
}

// toBlueprint converts wizard answers into a validated blueprint.
func (ans blueprintAnswers) toBlueprint() (*blueprint.Blueprint, error) {
	bp := &blueprint.Blueprint{
		ProjectName: strings.TrimSpace(ans.ProjectName),
		Goals:       splitList(ans.Goals, "\n"),
		TrafficProfile: blueprint.TrafficProfile{
			Global:           ans.Global,
			LatencySensitive: ans.LatencySensitive,
		},
	}

	rps, err := strconv.ParseFloat(strings.TrimSpace(ans.RPSPeak), 64)
	if err != nil {
		return nil, errors.NewBlueprintInvalidError(fmt.Errorf("rps_peak: %w", err))
	}
	bp.TrafficProfile.RPSPeak = rps

	if s := strings.TrimSpace(ans.CostCeiling); s != "" {
		ceiling, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.NewBlueprintInvalidError(fmt.Errorf("monthly_cost_usd_max: %w", err))
		}
		bp.Constraints.MonthlyCostUSDMax = &ceiling
	}
	bp.Constraints.Persistence = domain.Persistence(ans.Persistence)
	bp.Constraints.RegionAllow = splitList(ans.Regions, ",")
	for _, tag := range ans.Compliance {
		bp.Constraints.Compliance = append(bp.Constraints.Compliance, domain.ComplianceTag(tag))
	}
	if ans.Language != "" && ans.Language != string(domain.LanguageNone) {
		bp.SingleLanguageMode = domain.Language(ans.Language)
	}

	if err := bp.Validate(); err != nil {
		return nil, errors.NewBlueprintInvalidError(err)
	}
	return bp, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
