package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/config"
	"github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/exitcode"
	"github.com/felixgeelhaar/runeforge/internal/plan"
	"github.com/felixgeelhaar/runeforge/internal/telemetry"
)

type planOptions struct {
	file   string
	out    string
	format string
	strict bool
}

func (a *app) planCommand() *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Select a stack for a blueprint",
		Long: "Select one technology per topic for a blueprint and print the stack plan.\n\n" +
			exitCodeHelp(exitcode.Success, exitcode.InputError, exitcode.OutputError, exitcode.NoEligibleCandidate),
		Example: `  # Print a JSON plan
  runeforge plan -f blueprint.yaml

  # Write YAML with a different tie-break seed
  runeforge plan -f blueprint.yaml --seed 7 --out plan.yaml

  # Check the plan against its schema and keep it in the local archive
  runeforge plan -f blueprint.yaml --strict --archive ~/.runeforge/plans.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPlan(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "blueprint file (YAML or JSON)")
	f.StringVarP(&opts.out, "out", "o", "", "write the plan to a file instead of stdout")
	f.StringVar(&opts.format, "format", "", "output format: json or yaml (default from --out extension, else json)")
	f.BoolVar(&opts.strict, "strict", false, "validate the plan against its schema before writing it")
	addSelectionFlags(cmd)
	f.String(config.KeyArchive, "", "record the plan in this SQLite archive")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// addSelectionFlags adds the flags shared by plan and explain.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64(config.KeySeed, config.DefaultSeed, "tie-break seed")
	cmd.Flags().Bool(config.KeyParallel, false, "score topics concurrently")
}

func (a *app) runPlan(cmd *cobra.Command, opts *planOptions) error {
	ctx, span := telemetry.StartCommandSpan(cmd.Context(), "plan")
	defer span.End()

	format := plan.FormatJSON
	switch {
	case opts.format != "":
		parsed, err := plan.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		format = parsed
	case opts.out != "":
		format = plan.FormatForPath(opts.out)
	}

	bp, err := blueprint.LoadFile(opts.file)
	a.metrics.RecordValidation("blueprint", err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	p, closeArchive, err := a.newPlanner(ctx, opts.strict, true)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	defer closeArchive()

	seed := a.settings.Seed
	res, err := p.Plan(ctx, bp, seed)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if opts.out != "" {
		if err := plan.SaveFile(res.Plan, opts.out, format); err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		fmt.Fprintf(a.errOut, "Plan written to %s (%s)\n", opts.out, res.Plan.Meta.PlanHash)
	} else {
		data, err := plan.Encode(res.Plan, format)
		if err != nil {
			return errors.Wrap(errors.ErrCodePlanMarshal, "failed to encode plan", err)
		}
		if _, err := a.out.Write(data); err != nil {
			return err
		}
	}

	// the plan is already out; an archive failure only costs the history entry
	if _, err := p.Archive(ctx, bp, res); err != nil {
		a.logger.WithContext(ctx).WithError(err).Warn("plan not archived", "plan_hash", res.Plan.Meta.PlanHash)
		fmt.Fprintf(a.errOut, "Warning: plan not archived: %v\n", err)
	}

	telemetry.RecordSuccess(span,
		attribute.String("plan.hash", res.Plan.Meta.PlanHash),
		attribute.Int64("seed", int64(seed)),
	)
	return nil
}

// exitCodeHelp renders the exit-code table shown in command help.
func exitCodeHelp(codes ...int) string {
	var b strings.Builder
	b.WriteString("Exit codes:\n")
	for _, c := range codes {
		fmt.Fprintf(&b, "  %-3d %s\n", c, exitcode.GetExitCodeDescription(c))
	}
	return b.String()
}
