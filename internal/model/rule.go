// Package model defines the core data structures for the smartspend application.
package model

import (
	"time"
)

// MatchField identifies which transaction attribute a rule tests.
type MatchField string

// Match field constants.
const (
	FieldMerchant    MatchField = "merchant"
	FieldDescription MatchField = "description"
	FieldAmount      MatchField = "amount"
	FieldDate        MatchField = "date"
)

// MatchType identifies how a rule's pattern is compared against the field.
type MatchType string

// Match type constants. Text fields accept the first five; amount rules use
// MatchExact; date rules use the calendar types.
const (
	MatchExact      MatchType = "exact"
	MatchStartsWith MatchType = "startsWith"
	MatchEndsWith   MatchType = "endsWith"
	MatchContains   MatchType = "contains"
	MatchRegex      MatchType = "regex"
	MatchMonth      MatchType = "month"
	MatchDayOfWeek  MatchType = "dayOfWeek"
	MatchQuarter    MatchType = "quarter"
)

// Priority governs evaluation order among rules that could both match.
type Priority string

// Priority constants.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the numeric evaluation rank for a priority; higher ranks are
// evaluated first. Unknown priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// MatchTypesForField returns the set of match types that are legal for the
// given field.
func MatchTypesForField(field MatchField) []MatchType {
	switch field {
	case FieldMerchant, FieldDescription:
		return []MatchType{MatchExact, MatchStartsWith, MatchEndsWith, MatchContains, MatchRegex}
	case FieldAmount:
		return []MatchType{MatchExact}
	case FieldDate:
		return []MatchType{MatchMonth, MatchDayOfWeek, MatchQuarter}
	}
	return nil
}

// Rule represents a stored categorization rule: a predicate over transaction
// attributes plus the category to assign when it fires.
type Rule struct {
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastAppliedAt   *time.Time `json:"last_applied_at,omitempty"`
	SecondaryAmount *float64   `json:"secondary_amount,omitempty"`
	OwnerID         string     `json:"owner_id"`
	MatchField      MatchField `json:"match_field"`
	MatchType       MatchType  `json:"match_type"`
	Pattern         string     `json:"pattern"`
	Priority        Priority   `json:"priority"`
	ID              int64      `json:"id"`
	CategoryID      int64      `json:"category_id"`
	UseCount        int        `json:"use_count"`
	// Occurrences is set by the pattern miner for reporting and is never
	// persisted.
	Occurrences int  `json:"occurrences,omitempty"`
	IsActive    bool `json:"is_active"`
}
