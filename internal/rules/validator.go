package rules

import (
	"fmt"
	"strconv"
	"strings"

	"smartspend/internal/common"
	"smartspend/internal/model"
)

// Calendar pattern bounds.
const (
	monthMin, monthMax         = 1, 12
	dayOfWeekMin, dayOfWeekMax = 0, 6
	quarterMin, quarterMax     = 1, 4
)

// ValidateRule checks a rule payload against the model invariants before any
// persistence. All violations are wrapped in common.ErrValidation. Regex
// patterns are deliberately not compiled here: an uncompilable regex is a
// match-time concern and is skipped during matching instead of rejected.
func ValidateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule cannot be nil", common.ErrValidation)
	}
	if strings.TrimSpace(rule.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner", common.ErrValidation)
	}
	if rule.CategoryID <= 0 {
		return fmt.Errorf("%w: missing category", common.ErrValidation)
	}

	switch rule.Priority {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
	default:
		return fmt.Errorf("%w: invalid priority %q", common.ErrValidation, rule.Priority)
	}

	legal := model.MatchTypesForField(rule.MatchField)
	if legal == nil {
		return fmt.Errorf("%w: invalid match field %q", common.ErrValidation, rule.MatchField)
	}
	if !containsMatchType(legal, rule.MatchType) {
		return fmt.Errorf("%w: match type %q is not valid for field %q",
			common.ErrValidation, rule.MatchType, rule.MatchField)
	}

	pattern := strings.TrimSpace(rule.Pattern)
	if pattern == "" {
		return fmt.Errorf("%w: missing pattern", common.ErrValidation)
	}

	switch rule.MatchField {
	case model.FieldAmount:
		if _, err := strconv.ParseFloat(pattern, 64); err != nil {
			return fmt.Errorf("%w: amount pattern %q is not a number", common.ErrValidation, rule.Pattern)
		}
		if rule.SecondaryAmount != nil {
			return fmt.Errorf("%w: secondary amount is not allowed on amount rules", common.ErrValidation)
		}
	case model.FieldDate:
		if err := validateCalendarPattern(rule.MatchType, pattern); err != nil {
			return err
		}
	}

	return nil
}

func validateCalendarPattern(matchType model.MatchType, pattern string) error {
	value, err := strconv.Atoi(pattern)
	if err != nil {
		return fmt.Errorf("%w: calendar pattern %q is not an integer", common.ErrValidation, pattern)
	}

	var minValue, maxValue int
	switch matchType {
	case model.MatchMonth:
		minValue, maxValue = monthMin, monthMax
	case model.MatchDayOfWeek:
		minValue, maxValue = dayOfWeekMin, dayOfWeekMax
	case model.MatchQuarter:
		minValue, maxValue = quarterMin, quarterMax
	default:
		return fmt.Errorf("%w: invalid calendar match type %q", common.ErrValidation, matchType)
	}

	if value < minValue || value > maxValue {
		return fmt.Errorf("%w: %s pattern %d out of range [%d, %d]",
			common.ErrValidation, matchType, value, minValue, maxValue)
	}
	return nil
}

func containsMatchType(types []model.MatchType, t model.MatchType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
