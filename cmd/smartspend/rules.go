package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smartspend/internal/cli"
	"smartspend/internal/model"
	"smartspend/internal/rules"
	"smartspend/internal/service"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage categorization rules",
		Long: `Manage the rules that assign categories to transactions. Rules match on
merchant, description, amount, or calendar attributes, and are evaluated
high priority first with first-match-wins.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesEditCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesTestCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categorization rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			activeOnly, _ := cmd.Flags().GetBool("active")

			var ruleSet []model.Rule
			if activeOnly {
				ruleSet, err = store.ListActiveRules(ctx, currentOwner())
			} else {
				ruleSet, err = store.ListRules(ctx, currentOwner())
			}
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if len(ruleSet) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rules found."))
				return nil
			}

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to load categories: %w", err)
			}
			names := categoryNames(categories)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tFIELD\tTYPE\tPATTERN\tCATEGORY\tPRIORITY\tACTIVE\tUSES")
			for _, rule := range ruleSet {
				active := "yes"
				if !rule.IsActive {
					active = "no"
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
					rule.ID,
					rule.MatchField,
					rule.MatchType,
					truncateString(rule.Pattern, 30),
					names[rule.CategoryID],
					rule.Priority,
					active,
					rule.UseCount)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolP("active", "a", false, "Show only active rules")
	return cmd
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a categorization rule",
		Example: `  smartspend rules add --field merchant --type contains --pattern starbucks --category Dining
  smartspend rules add --field amount --type exact --pattern 9.99 --category Entertainment --priority low
  smartspend rules add --field date --type dayOfWeek --pattern 0 --category Dining`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			field, _ := cmd.Flags().GetString("field")
			matchType, _ := cmd.Flags().GetString("type")
			pattern, _ := cmd.Flags().GetString("pattern")
			category, _ := cmd.Flags().GetString("category")
			priority, _ := cmd.Flags().GetString("priority")

			cat, err := resolveCategory(ctx, store, category)
			if err != nil {
				return err
			}

			rule := model.Rule{
				OwnerID:    currentOwner(),
				CategoryID: cat.ID,
				MatchField: model.MatchField(field),
				MatchType:  model.MatchType(matchType),
				Pattern:    pattern,
				Priority:   model.Priority(priority),
				IsActive:   true,
			}
			if cmd.Flags().Changed("secondary-amount") {
				amount, _ := cmd.Flags().GetFloat64("secondary-amount")
				rule.SecondaryAmount = &amount
			}

			if err := store.CreateRule(ctx, &rule); err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("✓ Created rule %d: %s %s %q → %s",
					rule.ID, rule.MatchField, rule.MatchType, rule.Pattern, cat.Name)))
			return nil
		},
	}

	cmd.Flags().StringP("field", "f", "", "Match field (merchant, description, amount, date)")
	cmd.Flags().StringP("type", "t", "", "Match type (exact, startsWith, endsWith, contains, regex, month, dayOfWeek, quarter)")
	cmd.Flags().StringP("pattern", "p", "", "Pattern to match")
	cmd.Flags().StringP("category", "c", "", "Category to assign on match")
	cmd.Flags().String("priority", string(model.PriorityMedium), "Rule priority (high, medium, low)")
	cmd.Flags().Float64("secondary-amount", 0, "Additional amount constraint for non-amount rules")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("pattern")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func rulesEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <rule-id>",
		Short: "Edit a categorization rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rule, err := store.GetRule(ctx, id)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("pattern") {
				rule.Pattern, _ = cmd.Flags().GetString("pattern")
			}
			if cmd.Flags().Changed("priority") {
				priority, _ := cmd.Flags().GetString("priority")
				rule.Priority = model.Priority(priority)
			}
			if cmd.Flags().Changed("category") {
				category, _ := cmd.Flags().GetString("category")
				cat, err := resolveCategory(ctx, store, category)
				if err != nil {
					return err
				}
				rule.CategoryID = cat.ID
			}
			if cmd.Flags().Changed("active") {
				rule.IsActive, _ = cmd.Flags().GetBool("active")
			}

			if err := store.UpdateRule(ctx, rule); err != nil {
				return fmt.Errorf("failed to update rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ Updated rule %d", rule.ID)))
			return nil
		},
	}

	cmd.Flags().StringP("pattern", "p", "", "New pattern")
	cmd.Flags().StringP("category", "c", "", "New category")
	cmd.Flags().String("priority", "", "New priority (high, medium, low)")
	cmd.Flags().Bool("active", true, "Activate or deactivate the rule")
	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a categorization rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRule(ctx, id); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ Deleted rule %d", id)))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <rule-id>",
		Short: "Dry-run a rule against recent transactions",
		Long:  `Evaluate a single rule against recent transactions without writing anything.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rule, err := store.GetRule(ctx, id)
			if err != nil {
				return err
			}

			transactions, err := store.GetTransactions(ctx, currentOwner(),
				service.TransactionFilter{Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to load transactions: %w", err)
			}

			var matched int
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "DATE\tMERCHANT\tAMOUNT")
			for _, txn := range transactions {
				if rules.Matches(*rule, txn) {
					matched++
					_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\n",
						txn.Date.Format(time.DateOnly),
						truncateString(txn.Merchant, 40),
						txn.Amount)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(
				fmt.Sprintf("Rule %d matched %d of %d recent transactions", id, matched, len(transactions))))
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 100, "How many recent transactions to test against")
	return cmd
}

// resolveCategory looks a category up by name (case-insensitive) or ID.
func resolveCategory(ctx context.Context, store service.Storage, nameOrID string) (*model.Category, error) {
	if nameOrID == "" {
		return nil, fmt.Errorf("category is required")
	}

	if id, err := strconv.ParseInt(nameOrID, 10, 64); err == nil {
		return store.GetCategoryByID(ctx, id)
	}

	categories, err := store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	for _, cat := range categories {
		if strings.EqualFold(cat.Name, nameOrID) {
			return &cat, nil
		}
	}
	return nil, fmt.Errorf("unknown category %q", nameOrID)
}
