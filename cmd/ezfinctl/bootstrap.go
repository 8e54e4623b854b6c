package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ezfin/internal/services"
)

func bootstrapCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed the default categories for a user",
		Long: `Create the default expense and income categories for a user that has
none yet. Users that already own a category are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			res, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = res.Cleanup() }()

			finance := services.NewFinanceService(res.Store, nil)
			if err := finance.EnsureDefaultCategories(cmd.Context(), userID); err != nil {
				return fmt.Errorf("bootstrap categories: %w", err)
			}
			cats, err := finance.ListCategories(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s has %d categories\n", userID, len(cats))
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id to bootstrap")
	return cmd
}
