// Package engine orchestrates rule application and pattern mining over the
// persistence layer. All I/O happens here at batch boundaries; the matching
// and mining logic itself is pure and lives in internal/rules.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartspend/internal/common"
	"smartspend/internal/model"
	"smartspend/internal/rules"
	"smartspend/internal/service"
)

// SampleLimit caps how many updated transactions an ApplyResult carries for
// reporting.
const SampleLimit = 10

// RuleEngine applies categorization rules to transactions and mines new
// rules from categorized history.
type RuleEngine struct {
	storage service.Storage
	now     func() time.Time
	retry   service.RetryOptions
}

// New creates a rule engine over the given storage.
func New(storage service.Storage) *RuleEngine {
	return &RuleEngine{
		storage: storage,
		now:     time.Now,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
		},
	}
}

// ApplyOptions configures one rule application pass.
type ApplyOptions struct {
	// OnProgress, if set, is called after each matched transaction has been
	// persisted.
	OnProgress func(done, total int)
	OwnerID    string
	// TransactionIDs restricts the batch; empty means all of the owner's
	// transactions.
	TransactionIDs []string
	// SkipExistingCategories leaves transactions alone when they already
	// carry a category outside the reserved default buckets.
	SkipExistingCategories bool
}

// DefaultApplyOptions returns the standard apply configuration for an owner.
func DefaultApplyOptions(ownerID string) ApplyOptions {
	return ApplyOptions{
		OwnerID:                ownerID,
		SkipExistingCategories: true,
	}
}

// ApplyResult summarizes one apply pass. Failed per-item writes are counted
// rather than aborting the batch, so a result is returned even on partial
// success.
type ApplyResult struct {
	Sample       []model.Transaction
	UpdatedCount int
	SkippedCount int
	FailedCount  int
}

// ApplyRules evaluates the owner's active rules against a transaction batch,
// first-match-wins, persisting category assignments and rule usage stats.
func (e *RuleEngine) ApplyRules(ctx context.Context, opts ApplyOptions) (*ApplyResult, error) {
	if opts.OwnerID == "" {
		return nil, fmt.Errorf("%w: missing owner", common.ErrValidation)
	}

	activeRules, err := e.storage.ListActiveRules(ctx, opts.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}

	result := &ApplyResult{}
	if len(activeRules) == 0 {
		slog.Info("No active rules to apply", "owner", opts.OwnerID)
		return result, nil
	}

	transactions, err := e.storage.GetTransactions(ctx, opts.OwnerID,
		service.TransactionFilter{IDs: opts.TransactionIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	defaultBuckets, err := e.defaultBuckets(ctx)
	if err != nil {
		return nil, err
	}

	matcher := rules.NewMatcher(activeRules)
	outcome := matcher.Apply(transactions, opts.SkipExistingCategories, defaultBuckets)
	result.SkippedCount = outcome.Skipped

	appliedAt := e.now()
	for i, match := range outcome.Matches {
		if err := e.persistMatch(ctx, match, appliedAt); err != nil {
			common.LogError(err, "Failed to persist rule match", common.Fields{
				"transaction_id": match.Transaction.ID,
				"rule_id":        match.Rule.ID,
			})
			result.FailedCount++
			continue
		}

		result.UpdatedCount++
		if len(result.Sample) < SampleLimit {
			result.Sample = append(result.Sample, match.Transaction)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(outcome.Matches))
		}
	}

	slog.Info("Applied categorization rules",
		"owner", opts.OwnerID,
		"updated", result.UpdatedCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount)

	return result, nil
}

// persistMatch writes one match's category assignment and usage bump,
// retrying transient store failures. The usage bump rides on the category
// update: if the update fails the rule did not effectively fire.
func (e *RuleEngine) persistMatch(ctx context.Context, match rules.Match, appliedAt time.Time) error {
	err := common.WithRetry(ctx, func() error {
		return e.storage.UpdateTransactionCategory(ctx, match.Transaction.ID, match.Rule.CategoryID)
	}, e.retry)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	err = common.WithRetry(ctx, func() error {
		return e.storage.IncrementRuleUsage(ctx, match.Rule.ID, appliedAt)
	}, e.retry)
	if err != nil {
		// The transaction is already categorized; losing one usage tick is
		// preferable to rolling that back.
		common.LogError(err, "Failed to record rule usage", common.Fields{
			"rule_id": match.Rule.ID,
		})
	}
	return nil
}

// MineOptions configures one mining run.
type MineOptions struct {
	OwnerID        string
	MinOccurrences int
	MineMerchants  bool
	MineAmounts    bool
}

// DefaultMineOptions returns the standard mining configuration for an owner.
func DefaultMineOptions(ownerID string) MineOptions {
	defaults := rules.DefaultMineOptions()
	return MineOptions{
		OwnerID:        ownerID,
		MinOccurrences: defaults.MinOccurrences,
		MineMerchants:  defaults.MineMerchants,
		MineAmounts:    defaults.MineAmounts,
	}
}

// MineResult reports the rules created by one mining run.
type MineResult struct {
	CreatedRules []model.Rule
}

// GenerateRulesFromHistory mines the owner's categorized transactions for
// recurring merchants and amounts and persists each accepted candidate as it
// is discovered. A candidate that fails to persist is logged and skipped;
// the run continues.
func (e *RuleEngine) GenerateRulesFromHistory(ctx context.Context, opts MineOptions) (*MineResult, error) {
	if opts.OwnerID == "" {
		return nil, fmt.Errorf("%w: missing owner", common.ErrValidation)
	}

	existing, err := e.storage.ListRules(ctx, opts.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing rules: %w", err)
	}

	history, err := e.storage.GetCategorizedTransactions(ctx, opts.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categorized transactions: %w", err)
	}

	defaultBuckets, err := e.defaultBuckets(ctx)
	if err != nil {
		return nil, err
	}

	mined := rules.Mine(opts.OwnerID, history, existing, defaultBuckets, rules.MineOptions{
		MinOccurrences: opts.MinOccurrences,
		MineMerchants:  opts.MineMerchants,
		MineAmounts:    opts.MineAmounts,
	})

	result := &MineResult{}
	for _, candidate := range mined {
		rule := candidate
		if err := e.storage.CreateRule(ctx, &rule); err != nil {
			common.LogError(err, "Failed to persist mined rule", common.Fields{
				"pattern":     rule.Pattern,
				"match_field": rule.MatchField,
				"category_id": rule.CategoryID,
			})
			continue
		}
		result.CreatedRules = append(result.CreatedRules, rule)
	}

	slog.Info("Mined categorization rules",
		"owner", opts.OwnerID,
		"candidates", len(mined),
		"created", len(result.CreatedRules))

	return result, nil
}

// defaultBuckets resolves the IDs of the reserved default categories.
func (e *RuleEngine) defaultBuckets(ctx context.Context) (map[int64]struct{}, error) {
	categories, err := e.storage.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return model.DefaultBucketIDs(categories), nil
}
