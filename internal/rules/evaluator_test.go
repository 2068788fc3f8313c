package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"smartspend/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

// A Tuesday in August.
var testDate = time.Date(2026, time.August, 18, 10, 30, 0, 0, time.UTC)

func textRule(field model.MatchField, matchType model.MatchType, pattern string) model.Rule {
	return model.Rule{
		ID:         1,
		MatchField: field,
		MatchType:  matchType,
		Pattern:    pattern,
		IsActive:   true,
	}
}

func TestMatches_MerchantAndDescription(t *testing.T) {
	tests := []struct {
		name string
		rule model.Rule
		txn  model.Transaction
		want bool
	}{
		{
			name: "exact match is case-insensitive",
			rule: textRule(model.FieldMerchant, model.MatchExact, "Starbucks"),
			txn:  model.Transaction{Merchant: "STARBUCKS"},
			want: true,
		},
		{
			name: "exact match rejects partial",
			rule: textRule(model.FieldMerchant, model.MatchExact, "Starbucks"),
			txn:  model.Transaction{Merchant: "Starbucks #123"},
			want: false,
		},
		{
			name: "startsWith prefix",
			rule: textRule(model.FieldMerchant, model.MatchStartsWith, "star"),
			txn:  model.Transaction{Merchant: "Starbucks Downtown"},
			want: true,
		},
		{
			name: "startsWith rejects mid-string",
			rule: textRule(model.FieldMerchant, model.MatchStartsWith, "bucks"),
			txn:  model.Transaction{Merchant: "Starbucks"},
			want: false,
		},
		{
			name: "endsWith suffix",
			rule: textRule(model.FieldMerchant, model.MatchEndsWith, "coffee"),
			txn:  model.Transaction{Merchant: "Blue Bottle Coffee"},
			want: true,
		},
		{
			name: "endsWith rejects prefix",
			rule: textRule(model.FieldMerchant, model.MatchEndsWith, "blue"),
			txn:  model.Transaction{Merchant: "Blue Bottle Coffee"},
			want: false,
		},
		{
			name: "contains substring",
			rule: textRule(model.FieldMerchant, model.MatchContains, "bottle"),
			txn:  model.Transaction{Merchant: "Blue Bottle Coffee"},
			want: true,
		},
		{
			name: "contains rejects absent substring",
			rule: textRule(model.FieldMerchant, model.MatchContains, "peets"),
			txn:  model.Transaction{Merchant: "Blue Bottle Coffee"},
			want: false,
		},
		{
			name: "unrecognized text match type degrades to contains",
			rule: textRule(model.FieldMerchant, model.MatchType("fuzzy"), "bottle"),
			txn:  model.Transaction{Merchant: "Blue Bottle Coffee"},
			want: true,
		},
		{
			name: "regex is case-insensitive",
			rule: textRule(model.FieldMerchant, model.MatchRegex, `^uber\s+(trip|eats)`),
			txn:  model.Transaction{Merchant: "UBER TRIP 8821"},
			want: true,
		},
		{
			name: "regex rejects non-match",
			rule: textRule(model.FieldMerchant, model.MatchRegex, `^uber\s+(trip|eats)`),
			txn:  model.Transaction{Merchant: "Lyft Ride"},
			want: false,
		},
		{
			name: "invalid regex never matches",
			rule: textRule(model.FieldMerchant, model.MatchRegex, `([unclosed`),
			txn:  model.Transaction{Merchant: "anything"},
			want: false,
		},
		{
			name: "description field",
			rule: textRule(model.FieldDescription, model.MatchContains, "monthly"),
			txn:  model.Transaction{Description: "Monthly subscription fee"},
			want: true,
		},
		{
			name: "description rule ignores merchant",
			rule: textRule(model.FieldDescription, model.MatchContains, "netflix"),
			txn:  model.Transaction{Merchant: "Netflix", Description: "streaming"},
			want: false,
		},
		{
			name: "empty merchant cannot match",
			rule: textRule(model.FieldMerchant, model.MatchContains, "anything"),
			txn:  model.Transaction{Merchant: "", Description: "has text"},
			want: false,
		},
		{
			name: "whitespace-only merchant cannot match",
			rule: textRule(model.FieldMerchant, model.MatchContains, "anything"),
			txn:  model.Transaction{Merchant: "   "},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.rule, tt.txn))
		})
	}
}

func TestMatches_Amount(t *testing.T) {
	rule := textRule(model.FieldAmount, model.MatchExact, "4.99")

	tests := []struct {
		name   string
		amount float64
		want   bool
	}{
		{name: "exact amount", amount: 4.99, want: true},
		{name: "within tolerance above", amount: 5.00, want: true},
		{name: "within tolerance below", amount: 4.98, want: true},
		{name: "outside tolerance", amount: 5.02, want: false},
		{name: "sign is ignored", amount: -4.99, want: true},
		{name: "different amount", amount: 14.99, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := model.Transaction{Merchant: "any", Amount: tt.amount}
			assert.Equal(t, tt.want, Matches(rule, txn))
		})
	}

	t.Run("negative pattern matches positive amount", func(t *testing.T) {
		negative := textRule(model.FieldAmount, model.MatchExact, "-4.99")
		assert.True(t, Matches(negative, model.Transaction{Amount: 4.99}))
	})
}

func TestMatches_Date(t *testing.T) {
	tests := []struct {
		name string
		rule model.Rule
		want bool
	}{
		{name: "month match", rule: textRule(model.FieldDate, model.MatchMonth, "8"), want: true},
		{name: "month mismatch", rule: textRule(model.FieldDate, model.MatchMonth, "7"), want: false},
		{name: "day of week match (Tuesday=2)", rule: textRule(model.FieldDate, model.MatchDayOfWeek, "2"), want: true},
		{name: "day of week mismatch", rule: textRule(model.FieldDate, model.MatchDayOfWeek, "0"), want: false},
		{name: "quarter match (August=Q3)", rule: textRule(model.FieldDate, model.MatchQuarter, "3"), want: true},
		{name: "quarter mismatch", rule: textRule(model.FieldDate, model.MatchQuarter, "4"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := model.Transaction{Merchant: "any", Date: testDate}
			assert.Equal(t, tt.want, Matches(tt.rule, txn))
		})
	}

	t.Run("quarter boundaries", func(t *testing.T) {
		q1 := textRule(model.FieldDate, model.MatchQuarter, "1")
		march := model.Transaction{Date: time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)}
		april := model.Transaction{Date: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)}
		assert.True(t, Matches(q1, march))
		assert.False(t, Matches(q1, april))
	})

	t.Run("sunday is day zero", func(t *testing.T) {
		sunday := textRule(model.FieldDate, model.MatchDayOfWeek, "0")
		txn := model.Transaction{Date: time.Date(2026, time.August, 16, 0, 0, 0, 0, time.UTC)}
		assert.True(t, Matches(sunday, txn))
	})
}

func TestMatches_SecondaryAmount(t *testing.T) {
	rule := textRule(model.FieldMerchant, model.MatchContains, "starbucks")
	rule.SecondaryAmount = floatPtr(4.75)

	t.Run("both predicates must hold", func(t *testing.T) {
		assert.True(t, Matches(rule, model.Transaction{Merchant: "Starbucks #9", Amount: 4.75}))
	})
	t.Run("merchant matches but amount differs", func(t *testing.T) {
		assert.False(t, Matches(rule, model.Transaction{Merchant: "Starbucks #9", Amount: 12.40}))
	})
	t.Run("amount matches but merchant differs", func(t *testing.T) {
		assert.False(t, Matches(rule, model.Transaction{Merchant: "Peets", Amount: 4.75}))
	})
}

func TestMatches_UnknownFieldNeverMatches(t *testing.T) {
	rule := textRule(model.MatchField("account"), model.MatchExact, "checking")
	assert.False(t, Matches(rule, model.Transaction{Merchant: "checking"}))
}
