package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"smartspend/internal/cli"
	"smartspend/internal/engine"
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply categorization rules to transactions",
		Long: `Evaluate the active rules against your transactions, high priority first
with first-match-wins, and assign categories. Transactions that already
carry a real category are skipped unless --recategorize is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			recategorize, _ := cmd.Flags().GetBool("recategorize")
			ids, _ := cmd.Flags().GetStringSlice("transaction")

			var bar *progressbar.ProgressBar
			opts := engine.DefaultApplyOptions(currentOwner())
			opts.TransactionIDs = ids
			opts.SkipExistingCategories = !recategorize
			opts.OnProgress = func(done, total int) {
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionShowCount(),
						progressbar.OptionSetWidth(40),
						progressbar.OptionSetDescription("Categorizing transactions..."))
				}
				_ = bar.Set(done)
			}

			result, err := engine.New(store).ApplyRules(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to apply rules: %w", err)
			}
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(os.Stderr)
			}

			fmt.Println(cli.TitleStyle.Render("Rule application complete"))
			fmt.Printf("  %s %d updated\n", cli.SuccessStyle.Render("✓"), result.UpdatedCount)
			fmt.Printf("  %s %d skipped (already categorized)\n", cli.SubtleStyle.Render("•"), result.SkippedCount)
			if result.FailedCount > 0 {
				fmt.Printf("  %s %d failed\n", cli.ErrorStyle.Render("✗"), result.FailedCount)
			}

			if len(result.Sample) > 0 {
				fmt.Println()
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "DATE\tMERCHANT\tAMOUNT\tCATEGORY")
				names, err := loadCategoryNames(ctx, store)
				if err != nil {
					return err
				}
				for _, txn := range result.Sample {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n",
						txn.Date.Format(time.DateOnly),
						truncateString(txn.Merchant, 40),
						txn.Amount,
						names[txn.CategoryID])
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().Bool("recategorize", false, "Re-evaluate transactions that already have a category")
	cmd.Flags().StringSlice("transaction", nil, "Restrict to specific transaction IDs")
	return cmd
}
