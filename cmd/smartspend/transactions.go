package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"smartspend/internal/cli"
	"smartspend/internal/model"
	"smartspend/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "txns"},
		Short:   "Record and inspect transactions",
	}

	cmd.AddCommand(transactionsAddCmd())
	cmd.AddCommand(transactionsListCmd())

	return cmd
}

func transactionsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  smartspend transactions add --merchant "Starbucks #123" --amount 4.75
  smartspend transactions add --merchant "ACME Corp" --amount 2500 --date 2026-08-01 --category Income`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			merchant, _ := cmd.Flags().GetString("merchant")
			description, _ := cmd.Flags().GetString("description")
			amount, _ := cmd.Flags().GetFloat64("amount")
			dateStr, _ := cmd.Flags().GetString("date")
			category, _ := cmd.Flags().GetString("category")

			date := time.Now()
			if dateStr != "" {
				date, err = time.Parse(time.DateOnly, dateStr)
				if err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", dateStr)
				}
			}

			txn := model.Transaction{
				ID:          uuid.NewString(),
				OwnerID:     currentOwner(),
				Date:        date,
				Merchant:    merchant,
				Description: description,
				Amount:      amount,
			}
			if category != "" {
				cat, err := resolveCategory(ctx, store, category)
				if err != nil {
					return err
				}
				txn.CategoryID = cat.ID
			}

			if err := store.SaveTransactions(ctx, []model.Transaction{txn}); err != nil {
				return fmt.Errorf("failed to save transaction: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("✓ Recorded %s %.2f (%s)", merchant, amount, txn.ID)))
			return nil
		},
	}

	cmd.Flags().StringP("merchant", "m", "", "Merchant name")
	cmd.Flags().StringP("description", "d", "", "Free-text description")
	cmd.Flags().Float64P("amount", "a", 0, "Transaction amount")
	cmd.Flags().String("date", "", "Transaction date (YYYY-MM-DD, default today)")
	cmd.Flags().StringP("category", "c", "", "Category to assign immediately")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			limit, _ := cmd.Flags().GetInt("limit")

			transactions, err := store.GetTransactions(ctx, currentOwner(),
				service.TransactionFilter{Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if len(transactions) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No transactions found."))
				return nil
			}

			names, err := loadCategoryNames(ctx, store)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "DATE\tMERCHANT\tAMOUNT\tCATEGORY\tID")
			for _, txn := range transactions {
				category := names[txn.CategoryID]
				if txn.CategoryID == 0 {
					category = "-"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
					txn.Date.Format(time.DateOnly),
					truncateString(txn.Merchant, 40),
					txn.Amount,
					category,
					txn.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntP("limit", "n", 50, "Maximum transactions to show")
	return cmd
}
