package rules

import (
	"log/slog"
	"sort"

	"smartspend/internal/model"
)

// Matcher evaluates a snapshot of active rules against transaction batches.
// Rules are compiled once at construction; a rule whose pattern fails to
// compile is skipped for every transaction without failing the batch.
type Matcher struct {
	predicates map[int64]predicate
	rules      []model.Rule
}

// NewMatcher creates a matcher over the given rules. The slice is copied and
// sorted into evaluation order: priority high before medium before low, ties
// broken by descending use count, then by most recent application, then by
// most recent creation.
func NewMatcher(ruleSet []model.Rule) *Matcher {
	m := &Matcher{
		rules:      make([]model.Rule, len(ruleSet)),
		predicates: make(map[int64]predicate, len(ruleSet)),
	}
	copy(m.rules, ruleSet)
	SortRules(m.rules)

	for _, rule := range m.rules {
		if !rule.IsActive {
			continue
		}
		p, err := compileRule(rule)
		if err != nil {
			slog.Warn("Skipping uncompilable rule",
				"rule_id", rule.ID,
				"match_field", rule.MatchField,
				"match_type", rule.MatchType,
				"error", err)
			continue
		}
		m.predicates[rule.ID] = p
	}

	return m
}

// Match is a single rule firing: the transaction with its new category
// applied, and the rule that won.
type Match struct {
	Transaction model.Transaction
	Rule        model.Rule
}

// Outcome summarizes one batch pass.
type Outcome struct {
	Matches []Match
	Skipped int
}

// Apply runs the first-match-wins scan over a batch of transactions. When
// skipExisting is true, transactions that already carry a category outside
// the default buckets are skipped and counted. Transactions no rule matches
// are left untouched and appear in neither count. Apply never mutates its
// inputs; persistence of category assignments and usage stats is the
// caller's responsibility.
func (m *Matcher) Apply(txns []model.Transaction, skipExisting bool, defaultBuckets map[int64]struct{}) Outcome {
	var out Outcome

	for _, txn := range txns {
		if skipExisting && hasRealCategory(txn, defaultBuckets) {
			out.Skipped++
			continue
		}

		for _, rule := range m.rules {
			p, ok := m.predicates[rule.ID]
			if !ok || !p.matches(txn) {
				continue
			}

			updated := txn
			updated.CategoryID = rule.CategoryID
			out.Matches = append(out.Matches, Match{Transaction: updated, Rule: rule})
			break
		}
	}

	return out
}

// hasRealCategory reports whether the transaction carries a category that is
// not one of the reserved default buckets.
func hasRealCategory(txn model.Transaction, defaultBuckets map[int64]struct{}) bool {
	if txn.CategoryID == 0 {
		return false
	}
	_, isDefault := defaultBuckets[txn.CategoryID]
	return !isDefault
}

// SortRules orders rules in place into evaluation order.
func SortRules(ruleSet []model.Rule) {
	sort.SliceStable(ruleSet, func(i, j int) bool {
		a, b := ruleSet[i], ruleSet[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if a.UseCount != b.UseCount {
			return a.UseCount > b.UseCount
		}
		if !lastAppliedEqual(a, b) {
			return lastAppliedAfter(a, b)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func lastAppliedEqual(a, b model.Rule) bool {
	if a.LastAppliedAt == nil || b.LastAppliedAt == nil {
		return a.LastAppliedAt == nil && b.LastAppliedAt == nil
	}
	return a.LastAppliedAt.Equal(*b.LastAppliedAt)
}

// lastAppliedAfter ranks rules with a more recent application first; rules
// never applied sort last.
func lastAppliedAfter(a, b model.Rule) bool {
	if a.LastAppliedAt == nil {
		return false
	}
	if b.LastAppliedAt == nil {
		return true
	}
	return a.LastAppliedAt.After(*b.LastAppliedAt)
}
