package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSheetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Inspect scoreboard worksheets",
	}

	var asJSON bool
	dump := &cobra.Command{
		Use:   "dump [sheet]",
		Short: "Print every row of a worksheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.scoreboard(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			sheet := ""
			if len(args) == 1 {
				sheet = args[0]
			}
			rows, err := svc.SheetValues(cmd.Context(), sheet)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, row := range rows {
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			return tw.Flush()
		},
	}
	dump.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")

	users := &cobra.Command{
		Use:   "users [sheet]",
		Short: "Summarise each user's column",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.scoreboard(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			sheet := ""
			if len(args) == 1 {
				sheet = args[0]
			}
			summaries, err := svc.Users(cmd.Context(), sheet)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tTOTAL\tDAYS\tBEST\tLAST")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%g\t%d\t%g\t%s\n", s.Name, s.Total, s.Days, s.Best, s.LastDate)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(dump, users)
	return cmd
}
