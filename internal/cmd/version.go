package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/runeforge/internal/version"
)

func (a *app) versionCommand() *cobra.Command {
	var asJSON, verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()
			switch {
			case asJSON:
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(data))
			case verbose:
				fmt.Fprintf(a.out, "Version:    %s\n", info.Version)
				fmt.Fprintf(a.out, "Commit:     %s\n", info.Commit)
				fmt.Fprintf(a.out, "Built:      %s\n", info.Date)
				fmt.Fprintf(a.out, "Go version: %s\n", info.GoVersion)
				fmt.Fprintf(a.out, "Platform:   %s\n", info.Platform)
			default:
				fmt.Fprintln(a.out, info.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every field")
	return cmd
}
