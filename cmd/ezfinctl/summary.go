package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ezfin/internal/core"
)

type monthReport struct {
	Month         string               `json:"month"`
	Summary       core.MonthSummary    `json:"summary"`
	TopCategories []core.CategoryTotal `json:"topCategories"`
}

func summaryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a user's income, expenses and top categories for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			monthFlag, _ := cmd.Flags().GetString("month")
			asJSON, _ := cmd.Flags().GetBool("json")

			userID = strings.TrimSpace(userID)
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			month := core.MonthOrCurrent("", time.Now())
			if monthFlag != "" {
				m, ok := core.ParseMonth(monthFlag)
				if !ok {
					return fmt.Errorf("invalid --month %q: want YYYY-MM", monthFlag)
				}
				month = m
			}

			res, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = res.Cleanup() }()

			from, to := month.First(), month.Last()
			sum, err := res.Store.MonthSummary(cmd.Context(), userID, from, to)
			if err != nil {
				return fmt.Errorf("month summary: %w", err)
			}
			top, err := res.Store.TopCategories(cmd.Context(), userID, from, to, core.DefaultTopCategoriesLimit)
			if err != nil {
				return fmt.Errorf("top categories: %w", err)
			}

			report := monthReport{Month: month.Key(), Summary: sum, TopCategories: core.WithShares(top)}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().String("user", "", "user id")
	cmd.Flags().String("month", "", "month as YYYY-MM (default: current month)")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}

func printReport(out io.Writer, r monthReport) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Month\t%s\n", r.Month)
	fmt.Fprintf(tw, "Income\t%s\n", r.Summary.Income)
	fmt.Fprintf(tw, "Expenses\t%s\n", r.Summary.Expenses)
	fmt.Fprintf(tw, "Balance\t%s\n", r.Summary.Balance)
	if len(r.TopCategories) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Category\tTotal\tShare")
		for _, c := range r.TopCategories {
			fmt.Fprintf(tw, "%s\t%s\t%d%%\n", c.Name, c.Total, c.Percent)
		}
	}
	return tw.Flush()
}
