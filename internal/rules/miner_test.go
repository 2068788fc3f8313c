package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartspend/internal/model"
)

const testOwner = "owner-1"

func categorizedTxn(merchant string, amount float64, categoryID int64) model.Transaction {
	return model.Transaction{
		ID:         merchant + "-" + time.Now().Format("150405.000000000"),
		OwnerID:    testOwner,
		Merchant:   merchant,
		Amount:     amount,
		Date:       time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		CategoryID: categoryID,
	}
}

func repeat(n int, build func(i int) model.Transaction) []model.Transaction {
	txns := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txns = append(txns, build(i))
	}
	return txns
}

func TestMine_MerchantRules(t *testing.T) {
	dining := int64(5)
	txns := []model.Transaction{
		categorizedTxn("Starbucks #123", 4.75, dining),
		categorizedTxn("STARBUCKS #456", 5.10, dining),
		categorizedTxn("starbucks coffee", 4.50, dining),
	}

	mined := Mine(testOwner, txns, nil, nil, MineOptions{MinOccurrences: 3, MineMerchants: true})

	require.Len(t, mined, 1)
	rule := mined[0]
	assert.Equal(t, model.FieldMerchant, rule.MatchField)
	assert.Equal(t, model.MatchContains, rule.MatchType)
	assert.Equal(t, "starbucks", rule.Pattern)
	assert.Equal(t, dining, rule.CategoryID)
	assert.Equal(t, model.PriorityMedium, rule.Priority)
	assert.Equal(t, 3, rule.Occurrences)
	assert.True(t, rule.IsActive)
	assert.Zero(t, rule.UseCount)
	assert.Equal(t, testOwner, rule.OwnerID)
}

func TestMine_MerchantBelowThreshold(t *testing.T) {
	dining := int64(5)
	txns := []model.Transaction{
		categorizedTxn("Starbucks #123", 4.75, dining),
		categorizedTxn("Starbucks #456", 5.10, dining),
	}

	mined := Mine(testOwner, txns, nil, nil, MineOptions{MinOccurrences: 3, MineMerchants: true})
	assert.Empty(t, mined)
}

func TestMine_ShortMerchantsFiltered(t *testing.T) {
	txns := repeat(5, func(int) model.Transaction {
		return categorizedTxn("KFC Downtown", 12.00, 5)
	})

	mined := Mine(testOwner, txns, nil, nil, MineOptions{MinOccurrences: 3, MineMerchants: true})

	// "kfc" is only 3 characters; the threshold demands more than 3.
	assert.Empty(t, mined)
}

func TestMine_UncategorizedCarriesNoSignal(t *testing.T) {
	defaultBuckets := map[int64]struct{}{1: {}}
	txns := append(
		repeat(3, func(int) model.Transaction { return categorizedTxn("Starbucks", 4.75, 0) }),
		repeat(3, func(int) model.Transaction { return categorizedTxn("Wholefoods", 80.00, 1) })...,
	)

	mined := Mine(testOwner, txns, nil, defaultBuckets, MineOptions{MinOccurrences: 3, MineMerchants: true, MineAmounts: true})
	assert.Empty(t, mined)
}

func TestMine_MerchantDedup(t *testing.T) {
	dining := int64(5)
	txns := repeat(3, func(int) model.Transaction {
		return categorizedTxn("Starbucks #1", 4.75, dining)
	})
	existing := []model.Rule{{
		ID:         7,
		OwnerID:    testOwner,
		CategoryID: dining,
		MatchField: model.FieldMerchant,
		MatchType:  model.MatchContains,
		Pattern:    "STARBUCKS", // dedup is case-insensitive
		IsActive:   true,
	}}

	mined := Mine(testOwner, txns, existing, nil, MineOptions{MinOccurrences: 3, MineMerchants: true})
	assert.Empty(t, mined)
}

func TestMine_SecondRunCreatesNothing(t *testing.T) {
	dining := int64(5)
	txns := []model.Transaction{
		categorizedTxn("Starbucks #123", 4.75, dining),
		categorizedTxn("STARBUCKS #456", 5.10, dining),
		categorizedTxn("starbucks coffee", 4.50, dining),
	}
	opts := MineOptions{MinOccurrences: 3, MineMerchants: true, MineAmounts: true}

	first := Mine(testOwner, txns, nil, nil, opts)
	require.NotEmpty(t, first)

	second := Mine(testOwner, txns, first, nil, opts)
	assert.Empty(t, second)
}

func TestMine_AmountNoiseThreshold(t *testing.T) {
	subs := int64(8)
	opts := MineOptions{MinOccurrences: 3, MineAmounts: true}

	t.Run("small amount at min occurrences is suppressed", func(t *testing.T) {
		txns := repeat(3, func(int) model.Transaction {
			return categorizedTxn("App Store", 4.99, subs)
		})
		assert.Empty(t, Mine(testOwner, txns, nil, nil, opts))
	})

	t.Run("small amount at twice min occurrences qualifies", func(t *testing.T) {
		txns := repeat(6, func(int) model.Transaction {
			return categorizedTxn("App Store", 4.99, subs)
		})
		mined := Mine(testOwner, txns, nil, nil, opts)
		require.Len(t, mined, 1)
		assert.Equal(t, model.FieldAmount, mined[0].MatchField)
		assert.Equal(t, model.MatchExact, mined[0].MatchType)
		assert.Equal(t, "4.99", mined[0].Pattern)
		assert.Equal(t, model.PriorityLow, mined[0].Priority)
		assert.Equal(t, 6, mined[0].Occurrences)
	})

	t.Run("large amount qualifies at min occurrences", func(t *testing.T) {
		txns := repeat(3, func(int) model.Transaction {
			return categorizedTxn("Gym", 49.99, subs)
		})
		mined := Mine(testOwner, txns, nil, nil, opts)
		require.Len(t, mined, 1)
		assert.Equal(t, "49.99", mined[0].Pattern)
	})
}

func TestMine_AmountDedupWithinTolerance(t *testing.T) {
	subs := int64(8)
	txns := repeat(4, func(int) model.Transaction {
		return categorizedTxn("Gym", 50.00, subs)
	})
	existing := []model.Rule{{
		ID:         9,
		OwnerID:    testOwner,
		CategoryID: subs,
		MatchField: model.FieldAmount,
		MatchType:  model.MatchExact,
		Pattern:    "49.99", // within 0.01 of 50.00
		IsActive:   true,
	}}

	mined := Mine(testOwner, txns, existing, nil, MineOptions{MinOccurrences: 3, MineAmounts: true})
	assert.Empty(t, mined)
}

func TestMine_AmountGroupsBySign(t *testing.T) {
	subs := int64(8)
	txns := []model.Transaction{
		categorizedTxn("Gym", -49.99, subs),
		categorizedTxn("Gym", 49.99, subs),
		categorizedTxn("Gym", -49.99, subs),
	}

	mined := Mine(testOwner, txns, nil, nil, MineOptions{MinOccurrences: 3, MineAmounts: true})

	// Absolute values group together.
	require.Len(t, mined, 1)
	assert.Equal(t, "49.99", mined[0].Pattern)
}

func TestMine_DeterministicOrder(t *testing.T) {
	dining := int64(5)
	grocery := int64(6)
	txns := append(
		repeat(4, func(int) model.Transaction { return categorizedTxn("Starbucks #1", 4.75, dining) }),
		repeat(3, func(int) model.Transaction { return categorizedTxn("Wholefoods Market", 80.00, grocery) })...,
	)
	opts := MineOptions{MinOccurrences: 3, MineMerchants: true}

	first := Mine(testOwner, txns, nil, nil, opts)
	second := Mine(testOwner, txns, nil, nil, opts)

	require.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "starbucks", first[0].Pattern) // stronger evidence first
	assert.Equal(t, "wholefoods", first[1].Pattern)
}

func TestMine_EndToEndWithMatcher(t *testing.T) {
	dining := int64(5)
	history := []model.Transaction{
		categorizedTxn("Starbucks #123", 4.75, dining),
		categorizedTxn("STARBUCKS #456", 5.10, dining),
		categorizedTxn("starbucks coffee", 4.50, dining),
	}

	mined := Mine(testOwner, history, nil, nil, MineOptions{MinOccurrences: 3, MineMerchants: true})
	require.Len(t, mined, 1)

	mined[0].ID = 1
	fresh := model.Transaction{ID: "new", Merchant: "Starbucks Downtown", Amount: 6.20}
	out := NewMatcher(mined).Apply([]model.Transaction{fresh}, true, nil)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, dining, out.Matches[0].Transaction.CategoryID)
}
