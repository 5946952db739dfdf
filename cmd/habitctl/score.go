package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"example.com/habitboard/internal/scoreboard"
)

func newScoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Edit scoreboard cells",
	}

	var (
		sheet     string
		date      string
		operation string
	)
	set := &cobra.Command{
		Use:   "set <user> <score>",
		Short: "Apply a score to a user's cell, creating the date row when needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("score must be a number: %w", err)
			}
			if date == "" {
				date = time.Now().Format(scoreboard.DateLayout)
			}

			svc, cleanup, err := a.scoreboard(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.UpdateScore(cmd.Context(), scoreboard.UpdateInput{
				Sheet:     sheet,
				Date:      date,
				UserName:  args[0],
				Score:     score,
				Operation: scoreboard.Operation(operation),
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	set.Flags().StringVar(&sheet, "sheet", "", "worksheet name (defaults to DEFAULT_SHEET)")
	set.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (defaults to today)")
	set.Flags().StringVar(&operation, "op", "add", "add, subtract or set")

	var clearSheet, clearDate string
	clearCmd := &cobra.Command{
		Use:   "clear <user>",
		Short: "Clear a user's cell for a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.scoreboard(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.DeleteScore(cmd.Context(), scoreboard.DeleteInput{
				Sheet:    clearSheet,
				Date:     clearDate,
				UserName: args[0],
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	clearCmd.Flags().StringVar(&clearSheet, "sheet", "", "worksheet name (defaults to DEFAULT_SHEET)")
	clearCmd.Flags().StringVar(&clearDate, "date", "", "date as YYYY-MM-DD")
	_ = clearCmd.MarkFlagRequired("date")

	cmd.AddCommand(set, clearCmd)
	return cmd
}
