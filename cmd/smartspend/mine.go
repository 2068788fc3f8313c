package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"smartspend/internal/cli"
	"smartspend/internal/engine"
)

func mineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mine",
		Aliases: []string{"suggest"},
		Short:   "Mine new rules from categorized history",
		Long: `Scan your already-categorized transactions for recurring merchants and
amounts and create new rules for them. Candidates that duplicate an
existing rule are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			opts := engine.DefaultMineOptions(currentOwner())
			if cmd.Flags().Changed("min-occurrences") {
				opts.MinOccurrences, _ = cmd.Flags().GetInt("min-occurrences")
			}
			if noMerchants, _ := cmd.Flags().GetBool("no-merchants"); noMerchants {
				opts.MineMerchants = false
			}
			if noAmounts, _ := cmd.Flags().GetBool("no-amounts"); noAmounts {
				opts.MineAmounts = false
			}

			result, err := engine.New(store).GenerateRulesFromHistory(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to mine rules: %w", err)
			}

			if len(result.CreatedRules) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No new rules discovered."))
				return nil
			}

			names, err := loadCategoryNames(ctx, store)
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(
				fmt.Sprintf("Created %d new rules", len(result.CreatedRules))))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tFIELD\tPATTERN\tCATEGORY\tSEEN")
			for _, rule := range result.CreatedRules {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d×\n",
					rule.ID,
					rule.MatchField,
					truncateString(rule.Pattern, 30),
					names[rule.CategoryID],
					rule.Occurrences)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntP("min-occurrences", "m", 3, "Occurrences required before proposing a rule")
	cmd.Flags().Bool("no-merchants", false, "Skip merchant mining")
	cmd.Flags().Bool("no-amounts", false, "Skip amount mining")
	return cmd
}
