package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/plan"
)

func (a *app) validateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate blueprints and plans",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "blueprint FILE",
		Short: "Check a blueprint against its schema and constraints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bp, err := blueprint.LoadFile(args[0])
			a.metrics.RecordValidation("blueprint", err)
			if err != nil {
				return err
			}
			hash, err := bp.Hash()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: valid blueprint for %q (%s)\n", args[0], bp.ProjectName, hash)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "plan FILE",
		Short: "Check a plan's schema, invariants and plan_hash",
		Long: `Check a stack plan against the StackPlan schema and its invariants, then
recompute plan_hash from its contents to detect edits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validatePlanFile(args[0])
			a.metrics.RecordValidation("plan", err)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: valid plan\n", args[0])
			return nil
		},
	})
	return cmd
}

func validatePlanFile(path string) error {
	p, err := plan.LoadFile(path)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodePlanInvariant, "plan invariant violated", err)
	}
	ok, err := p.VerifyHash()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodePlanInvariant, "plan_hash does not match the plan's contents").
			WithSuggestion("Regenerate the plan with 'runeforge plan' instead of editing it")
	}
	return nil
}
