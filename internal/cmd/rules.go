package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) rulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rules table",
		Long: `Inspect the rules table a selection would use. The table comes from
--rules, ./runeforge.rules.yaml, ~/.runeforge/rules.yaml or the built-in
default, in that order.`,
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved rules table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.loadRules()
			if err != nil {
				return err
			}
			var data []byte
			switch format {
			case "yaml", "yml", "":
				data, err = yaml.Marshal(repo.Config())
			case "json":
				data, err = json.MarshalIndent(repo.Config(), "", "  ")
				data = append(data, '\n')
			default:
				return fmt.Errorf("unsupported format %q: must be yaml or json", format)
			}
			if err != nil {
				return fmt.Errorf("marshal rules: %w", err)
			}
			fmt.Fprintf(a.out, "# source: %s\n# fingerprint: %s\n", repo.Source(), repo.Fingerprint())
			_, err = a.out.Write(data)
			return err
		},
	}
	show.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the resolved rules table and print its fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.loadRules()
			a.metrics.RecordValidation("rules", err)
			if err != nil {
				return err
			}
			candidates := 0
			for _, t := range repo.Topics() {
				candidates += len(t.Candidates)
			}
			fmt.Fprintf(a.out, "%s: valid (version %s, %d topics, %d candidates)\n",
				repo.Source(), repo.Version(), len(repo.Topics()), candidates)
			fmt.Fprintf(a.out, "fingerprint: %s\n", repo.Fingerprint())
			return nil
		},
	}

	cmd.AddCommand(show, check)
	return cmd
}
