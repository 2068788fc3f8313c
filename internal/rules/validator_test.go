package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smartspend/internal/common"
	"smartspend/internal/model"
)

func validRule() model.Rule {
	return model.Rule{
		OwnerID:    "owner-1",
		CategoryID: 5,
		MatchField: model.FieldMerchant,
		MatchType:  model.MatchContains,
		Pattern:    "starbucks",
		Priority:   model.PriorityMedium,
		IsActive:   true,
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Rule)
		wantErr bool
	}{
		{name: "valid merchant rule", mutate: func(*model.Rule) {}},
		{
			name: "valid regex rule with uncompilable pattern",
			mutate: func(r *model.Rule) {
				// Compilability is a match-time concern, not a validation one.
				r.MatchType = model.MatchRegex
				r.Pattern = `([unclosed`
			},
		},
		{
			name: "valid amount rule",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldAmount
				r.MatchType = model.MatchExact
				r.Pattern = "4.99"
			},
		},
		{
			name: "valid date rule",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldDate
				r.MatchType = model.MatchQuarter
				r.Pattern = "4"
			},
		},
		{
			name: "valid secondary amount on merchant rule",
			mutate: func(r *model.Rule) {
				r.SecondaryAmount = floatPtr(4.75)
			},
		},
		{
			name:    "missing owner",
			mutate:  func(r *model.Rule) { r.OwnerID = "" },
			wantErr: true,
		},
		{
			name:    "missing category",
			mutate:  func(r *model.Rule) { r.CategoryID = 0 },
			wantErr: true,
		},
		{
			name:    "empty pattern",
			mutate:  func(r *model.Rule) { r.Pattern = "" },
			wantErr: true,
		},
		{
			name:    "whitespace pattern",
			mutate:  func(r *model.Rule) { r.Pattern = "   " },
			wantErr: true,
		},
		{
			name:    "unknown match field",
			mutate:  func(r *model.Rule) { r.MatchField = "account" },
			wantErr: true,
		},
		{
			name: "calendar match type on text field",
			mutate: func(r *model.Rule) {
				r.MatchType = model.MatchMonth
			},
			wantErr: true,
		},
		{
			name: "regex match type on amount field",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldAmount
				r.MatchType = model.MatchRegex
				r.Pattern = "4.99"
			},
			wantErr: true,
		},
		{
			name: "non-numeric amount pattern",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldAmount
				r.MatchType = model.MatchExact
				r.Pattern = "lots"
			},
			wantErr: true,
		},
		{
			name: "secondary amount on amount rule",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldAmount
				r.MatchType = model.MatchExact
				r.Pattern = "4.99"
				r.SecondaryAmount = floatPtr(1.00)
			},
			wantErr: true,
		},
		{
			name: "month out of range",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldDate
				r.MatchType = model.MatchMonth
				r.Pattern = "13"
			},
			wantErr: true,
		},
		{
			name: "day of week out of range",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldDate
				r.MatchType = model.MatchDayOfWeek
				r.Pattern = "7"
			},
			wantErr: true,
		},
		{
			name: "day of week zero is valid",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldDate
				r.MatchType = model.MatchDayOfWeek
				r.Pattern = "0"
			},
		},
		{
			name: "quarter out of range",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldDate
				r.MatchType = model.MatchQuarter
				r.Pattern = "5"
			},
			wantErr: true,
		},
		{
			name: "non-integer calendar pattern",
			mutate: func(r *model.Rule) {
				r.MatchField = model.FieldDate
				r.MatchType = model.MatchMonth
				r.Pattern = "January"
			},
			wantErr: true,
		},
		{
			name:    "invalid priority",
			mutate:  func(r *model.Rule) { r.Priority = "urgent" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(&rule)

			err := ValidateRule(&rule)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("nil rule", func(t *testing.T) {
		assert.ErrorIs(t, ValidateRule(nil), common.ErrValidation)
	})
}
