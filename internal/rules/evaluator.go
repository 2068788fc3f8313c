// Package rules implements the transaction categorization core: predicate
// evaluation, first-match-wins rule application, and pattern mining over
// categorized history.
package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"smartspend/internal/model"
)

// AmountTolerance absorbs rounding differences when comparing amounts.
const AmountTolerance = 0.01

// predicate is the compiled boolean test derived from a rule. Evaluation is
// pure and never fails; rules that cannot be compiled never reach a
// predicate.
type predicate interface {
	matches(txn model.Transaction) bool
}

// compileRule builds the predicate for a rule. Regex rules with an invalid
// pattern and rules with an unknown match field fail to compile; callers
// treat those rules as never matching.
func compileRule(rule model.Rule) (predicate, error) {
	var p predicate
	var err error

	switch rule.MatchField {
	case model.FieldMerchant, model.FieldDescription:
		p, err = compileTextPredicate(rule)
	case model.FieldAmount:
		p, err = compileAmountPredicate(rule)
	case model.FieldDate:
		p, err = compileDatePredicate(rule)
	default:
		return nil, fmt.Errorf("unknown match field %q", rule.MatchField)
	}
	if err != nil {
		return nil, err
	}

	// A secondary amount turns the rule into a conjunction: primary
	// predicate AND amount tolerance check.
	if rule.SecondaryAmount != nil && rule.MatchField != model.FieldAmount {
		p = conjunction{primary: p, amount: *rule.SecondaryAmount}
	}

	return p, nil
}

// textPredicate matches merchant or description fields case-insensitively.
type textPredicate struct {
	re        *regexp.Regexp
	field     model.MatchField
	matchType model.MatchType
	pattern   string
}

func compileTextPredicate(rule model.Rule) (predicate, error) {
	p := textPredicate{
		field:     rule.MatchField,
		matchType: rule.MatchType,
		pattern:   strings.ToLower(strings.TrimSpace(rule.Pattern)),
	}

	if rule.MatchType == model.MatchRegex {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", rule.Pattern, err)
		}
		p.re = re
	}

	return p, nil
}

func (p textPredicate) matches(txn model.Transaction) bool {
	value := txn.Merchant
	if p.field == model.FieldDescription {
		value = txn.Description
	}
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		// An absent field cannot match.
		return false
	}

	switch p.matchType {
	case model.MatchExact:
		return value == p.pattern
	case model.MatchStartsWith:
		return strings.HasPrefix(value, p.pattern)
	case model.MatchEndsWith:
		return strings.HasSuffix(value, p.pattern)
	case model.MatchRegex:
		return p.re.MatchString(value)
	default:
		// Unrecognized text match types degrade to a substring test.
		return strings.Contains(value, p.pattern)
	}
}

// amountPredicate compares absolute amounts within AmountTolerance.
type amountPredicate struct {
	amount float64
}

func compileAmountPredicate(rule model.Rule) (predicate, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(rule.Pattern), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount pattern %q: %w", rule.Pattern, err)
	}
	return amountPredicate{amount: amount}, nil
}

func (p amountPredicate) matches(txn model.Transaction) bool {
	return amountsEqual(txn.Amount, p.amount)
}

// amountsEqual reports whether two amounts are equal ignoring sign, within
// AmountTolerance.
func amountsEqual(a, b float64) bool {
	return math.Abs(math.Abs(a)-math.Abs(b)) <= AmountTolerance
}

// datePredicate matches calendar attributes of the transaction's own date.
type datePredicate struct {
	matchType model.MatchType
	value     int
}

func compileDatePredicate(rule model.Rule) (predicate, error) {
	value, err := strconv.Atoi(strings.TrimSpace(rule.Pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid calendar pattern %q: %w", rule.Pattern, err)
	}
	switch rule.MatchType {
	case model.MatchMonth, model.MatchDayOfWeek, model.MatchQuarter:
		return datePredicate{matchType: rule.MatchType, value: value}, nil
	}
	return nil, fmt.Errorf("unknown date match type %q", rule.MatchType)
}

func (p datePredicate) matches(txn model.Transaction) bool {
	switch p.matchType {
	case model.MatchMonth:
		return int(txn.Date.Month()) == p.value
	case model.MatchDayOfWeek:
		// time.Weekday already uses the Sunday=0 convention.
		return int(txn.Date.Weekday()) == p.value
	case model.MatchQuarter:
		return (int(txn.Date.Month())-1)/3+1 == p.value
	}
	return false
}

// conjunction requires both the primary predicate and an amount check.
type conjunction struct {
	primary predicate
	amount  float64
}

func (c conjunction) matches(txn model.Transaction) bool {
	return c.primary.matches(txn) && amountsEqual(txn.Amount, c.amount)
}

// Matches compiles a single rule and evaluates it against a transaction.
// Rules that fail to compile never match. Batch callers should use Matcher,
// which compiles each rule once.
func Matches(rule model.Rule, txn model.Transaction) bool {
	p, err := compileRule(rule)
	if err != nil {
		return false
	}
	return p.matches(txn)
}
