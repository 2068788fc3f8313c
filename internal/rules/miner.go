package rules

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"smartspend/internal/model"
)

// Mining defaults and thresholds.
const (
	// DefaultMinOccurrences is how often a merchant or amount must recur
	// before it is proposed as a rule.
	DefaultMinOccurrences = 3
	// minMerchantLength filters out merchant fragments too short to carry
	// signal ("inc", "llc", stray digits).
	minMerchantLength = 3
	// smallAmountFloor: amounts below this are common enough (coffee,
	// fees) that they need twice the occurrence evidence.
	smallAmountFloor = 10.0
)

// MineOptions controls a mining run.
type MineOptions struct {
	MinOccurrences int
	MineMerchants  bool
	MineAmounts    bool
}

// DefaultMineOptions returns the standard mining configuration.
func DefaultMineOptions() MineOptions {
	return MineOptions{
		MinOccurrences: DefaultMinOccurrences,
		MineMerchants:  true,
		MineAmounts:    true,
	}
}

// Mine scans categorized transaction history and proposes new rules for
// recurring merchants and amounts. Only transactions carrying a real (non
// default-bucket) category are considered. Candidates that duplicate an
// existing rule are dropped. Returned rules are unpersisted: zero ID, zero
// use count, active, with Occurrences set to the observed frequency.
func Mine(ownerID string, txns []model.Transaction, existing []model.Rule, defaultBuckets map[int64]struct{}, opts MineOptions) []model.Rule {
	if opts.MinOccurrences <= 0 {
		opts.MinOccurrences = DefaultMinOccurrences
	}

	var qualifying []model.Transaction
	for _, txn := range txns {
		if hasRealCategory(txn, defaultBuckets) {
			qualifying = append(qualifying, txn)
		}
	}

	var mined []model.Rule
	if opts.MineMerchants {
		mined = append(mined, mineMerchants(ownerID, qualifying, existing, opts.MinOccurrences)...)
	}
	if opts.MineAmounts {
		mined = append(mined, mineAmounts(ownerID, qualifying, existing, opts.MinOccurrences)...)
	}
	return mined
}

type merchantKey struct {
	merchant   string
	categoryID int64
}

func mineMerchants(ownerID string, txns []model.Transaction, existing []model.Rule, minOccurrences int) []model.Rule {
	counts := make(map[merchantKey]int)
	for _, txn := range txns {
		merchant := normalizeMerchant(txn.Merchant)
		if merchant == "" {
			continue
		}
		counts[merchantKey{merchant: merchant, categoryID: txn.CategoryID}]++
	}

	// Existing merchant rules, keyed by category and lowercased pattern.
	seen := make(map[merchantKey]struct{})
	for _, rule := range existing {
		if rule.MatchField != model.FieldMerchant {
			continue
		}
		key := merchantKey{
			merchant:   strings.ToLower(strings.TrimSpace(rule.Pattern)),
			categoryID: rule.CategoryID,
		}
		seen[key] = struct{}{}
	}

	var mined []model.Rule
	for key, count := range counts {
		if count < minOccurrences || len(key.merchant) <= minMerchantLength {
			continue
		}
		if _, exists := seen[key]; exists {
			continue
		}
		mined = append(mined, model.Rule{
			OwnerID:     ownerID,
			CategoryID:  key.categoryID,
			MatchField:  model.FieldMerchant,
			MatchType:   model.MatchContains,
			Pattern:     key.merchant,
			Priority:    model.PriorityMedium,
			IsActive:    true,
			Occurrences: count,
		})
	}

	sortMined(mined)
	return mined
}

type amountKey struct {
	categoryID int64
	cents      int64
}

func mineAmounts(ownerID string, txns []model.Transaction, existing []model.Rule, minOccurrences int) []model.Rule {
	counts := make(map[amountKey]int)
	for _, txn := range txns {
		counts[amountKey{categoryID: txn.CategoryID, cents: toCents(txn.Amount)}]++
	}

	// Existing amount rules per category, for tolerance-based dedup.
	existingAmounts := make(map[int64][]float64)
	for _, rule := range existing {
		if rule.MatchField != model.FieldAmount {
			continue
		}
		if amount, err := strconv.ParseFloat(strings.TrimSpace(rule.Pattern), 64); err == nil {
			existingAmounts[rule.CategoryID] = append(existingAmounts[rule.CategoryID], amount)
		}
	}

	var mined []model.Rule
	for key, count := range counts {
		amount := float64(key.cents) / 100
		if count < minOccurrences {
			continue
		}
		// Small round amounts recur across many merchants; demand twice
		// the evidence before proposing a rule for them.
		if amount < smallAmountFloor && count < 2*minOccurrences {
			continue
		}
		if amountRuleExists(existingAmounts[key.categoryID], amount) {
			continue
		}
		mined = append(mined, model.Rule{
			OwnerID:     ownerID,
			CategoryID:  key.categoryID,
			MatchField:  model.FieldAmount,
			MatchType:   model.MatchExact,
			Pattern:     strconv.FormatFloat(amount, 'f', 2, 64),
			Priority:    model.PriorityLow,
			IsActive:    true,
			Occurrences: count,
		})
	}

	sortMined(mined)
	return mined
}

func amountRuleExists(amounts []float64, amount float64) bool {
	for _, existing := range amounts {
		if amountsEqual(existing, amount) {
			return true
		}
	}
	return false
}

// normalizeMerchant reduces a raw merchant string to its grouping key: the
// leading token of the trimmed, lowercased name. Store numbers and location
// suffixes ("STARBUCKS #456", "starbucks coffee") collapse onto the same
// base merchant, which is what the mined contains-rule will match on.
func normalizeMerchant(merchant string) string {
	merchant = strings.ToLower(strings.TrimSpace(merchant))
	if i := strings.IndexFunc(merchant, unicode.IsSpace); i >= 0 {
		merchant = merchant[:i]
	}
	return merchant
}

// toCents rounds an absolute amount to whole cents for grouping.
func toCents(amount float64) int64 {
	return int64(math.Round(math.Abs(amount) * 100))
}

// sortMined orders mined rules deterministically: strongest evidence first,
// then by pattern. Map iteration order must never leak into results.
func sortMined(mined []model.Rule) {
	sort.Slice(mined, func(i, j int) bool {
		if mined[i].Occurrences != mined[j].Occurrences {
			return mined[i].Occurrences > mined[j].Occurrences
		}
		if mined[i].Pattern != mined[j].Pattern {
			return mined[i].Pattern < mined[j].Pattern
		}
		return mined[i].CategoryID < mined[j].CategoryID
	})
}
