package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/runeforge/internal/archive"
	"github.com/felixgeelhaar/runeforge/internal/config"
	"github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/plan"
)

func (a *app) historyCommand() *cobra.Command {
	var project string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived plans",
		Long: `List plans recorded in the archive, newest first.

Plans are archived by 'runeforge plan --archive' and 'runeforge serve --archive'
or when the archive setting is present in the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openArchive(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), archive.ListOptions{Project: project, Limit: limit})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "No archived plans")
				return nil
			}
			fmt.Fprintln(a.out, a.historyTable(entries))
			return nil
		},
	}
	cmd.PersistentFlags().String(config.KeyArchive, "", "SQLite archive to read")
	cmd.Flags().StringVar(&project, "project", "", "only plans for this project")
	cmd.Flags().IntVar(&limit, "limit", archive.DefaultLimit, "maximum number of plans")

	var format string
	show := &cobra.Command{
		Use:   "show REF",
		Short: "Print an archived plan",
		Long:  `Print an archived plan by archive id or plan hash prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := plan.ParseFormat(format)
			if err != nil {
				return err
			}
			store, err := a.openArchive(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			p, _, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := plan.Encode(p, f)
			if err != nil {
				return errors.Wrap(errors.ErrCodePlanMarshal, "failed to encode plan", err)
			}
			_, err = a.out.Write(data)
			return err
		},
	}
	show.Flags().StringVar(&format, "format", "json", "output format: json or yaml")

	cmd.AddCommand(show)
	return cmd
}

func (a *app) openArchive(cmd *cobra.Command) (*archive.Store, error) {
	if a.settings.Archive == "" {
		return nil, errors.New(errors.ErrCodeArchiveOpen, "no archive configured").
			WithSuggestion("Pass --archive PATH or set archive in the config file")
	}
	return archive.Open(cmd.Context(), a.settings.Archive)
}

func (a *app) historyTable(entries []archive.Entry) string {
	t := table.New().
		Headers("ID", "PROJECT", "SEED", "COST", "PLAN HASH", "CREATED").
		Border(lipgloss.NormalBorder())
	if !a.noColor {
		header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
		t = t.StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle()
		})
	}
	for _, e := range entries {
		t = t.Row(
			e.ID[:8],
			e.Project,
			strconv.FormatUint(e.Seed, 10),
			fmt.Sprintf("$%.2f", e.MonthlyCostUSD),
			shortHash(e.PlanHash),
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
	return t.Render()
}

func shortHash(h string) string {
	const n = len("sha256:") + 12
	if len(h) > n {
		return h[:n]
	}
	return h
}
