package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/runeforge/internal/blueprint"
	"github.com/felixgeelhaar/runeforge/internal/explain"
	"github.com/felixgeelhaar/runeforge/internal/telemetry"
)

func (a *app) explainCommand() *cobra.Command {
	var file, format string
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how each topic was decided",
		Long: `Explain a selection topic by topic: the budget each topic was filtered
with, every rejected candidate with the rule that excluded it, and the
ranked survivors with their score breakdowns and tie flags.

A failed selection is explained too; the command then exits with the same
code as 'runeforge plan'.`,
		Example: `  runeforge explain -f blueprint.yaml
  runeforge explain -f blueprint.yaml --format markdown > DECISIONS.md
  runeforge explain -f blueprint.yaml --format json | jq '.topics[1]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, span := telemetry.StartCommandSpan(cmd.Context(), "explain")
			defer span.End()

			bp, err := blueprint.LoadFile(file)
			if err != nil {
				return err
			}
			p, closeArchive, err := a.newPlanner(ctx, false, false)
			if err != nil {
				return err
			}
			defer closeArchive()

			res, selErr := p.Plan(ctx, bp, a.settings.Seed)
			if res == nil {
				telemetry.RecordError(span, selErr)
				return selErr
			}

			e := explain.New(bp, p.Rules(), res)
			f := explain.NewFormatter(!a.noColor)
			var out string
			switch format {
			case "text", "":
				out = f.FormatText(e)
			case "json":
				out, err = f.FormatJSON(e)
				if err != nil {
					return err
				}
				out += "\n"
			case "compact":
				out = f.FormatCompact(e)
			case "markdown", "md":
				out = f.FormatMarkdown(e)
			default:
				return fmt.Errorf("unsupported format %q: must be text, json, compact or markdown", format)
			}
			fmt.Fprint(a.out, out)

			telemetry.RecordError(span, selErr)
			return selErr
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "blueprint file (YAML or JSON)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, compact or markdown")
	addSelectionFlags(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
