package visibility

import (
	"strconv"
	"strings"
)

// Operator compares a normalized answer against a condition value.
type Operator string

const (
	Equals       Operator = "equals"
	NotEquals    Operator = "not_equals"
	Contains     Operator = "contains"
	NotContains  Operator = "not_contains"
	GreaterThan  Operator = "greater_than"
	LessThan     Operator = "less_than"
	GreaterEqual Operator = "greater_equal"
	LessEqual    Operator = "less_equal"
	IsEmpty      Operator = "is_empty"
	IsNotEmpty   Operator = "is_not_empty"
)

type operatorFunc func(v Normalized, conditionValue string) bool

var operators = map[Operator]operatorFunc{
	Equals:       equals,
	NotEquals:    not(equals),
	Contains:     contains,
	NotContains:  not(contains),
	GreaterThan:  numeric(func(a, b float64) bool { return a > b }),
	LessThan:     numeric(func(a, b float64) bool { return a < b }),
	GreaterEqual: numeric(func(a, b float64) bool { return a >= b }),
	LessEqual:    numeric(func(a, b float64) bool { return a <= b }),
	IsEmpty:      isEmpty,
	IsNotEmpty:   not(isEmpty),
}

// Operators returns every supported operator, in declaration order.
func Operators() []Operator {
	return []Operator{
		Equals, NotEquals, Contains, NotContains,
		GreaterThan, LessThan, GreaterEqual, LessEqual,
		IsEmpty, IsNotEmpty,
	}
}

func (op Operator) Valid() bool {
	_, ok := operators[op]
	return ok
}

// NeedsValue reports whether the operator compares against a condition value.
// The emptiness checks ignore it.
func (op Operator) NeedsValue() bool {
	return op != IsEmpty && op != IsNotEmpty
}

// Apply runs the operator. Unknown operators never match.
func (op Operator) Apply(v Normalized, conditionValue string) bool {
	fn, ok := operators[op]
	if !ok {
		return false
	}
	return fn(v, conditionValue)
}

func not(fn operatorFunc) operatorFunc {
	return func(v Normalized, conditionValue string) bool {
		return !fn(v, conditionValue)
	}
}

// Multi-select answers are compared by their scalar only.
func equals(v Normalized, conditionValue string) bool {
	return strings.ToLower(v.Scalar) == strings.ToLower(conditionValue)
}

func contains(v Normalized, conditionValue string) bool {
	needle := strings.ToLower(conditionValue)

	if len(v.Options) > 0 {
		for _, option := range v.Options {
			if strings.Contains(strings.ToLower(option), needle) {
				return true
			}
		}
		return false
	}

	return strings.Contains(strings.ToLower(v.Scalar), needle)
}

func numeric(cmp func(a, b float64) bool) operatorFunc {
	return func(v Normalized, conditionValue string) bool {
		answer, ok := parseNumber(v.Scalar)
		if !ok {
			return false
		}
		expected, ok := parseNumber(conditionValue)
		if !ok {
			return false
		}
		return cmp(answer, expected)
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

func isEmpty(v Normalized, _ string) bool {
	if len(v.Options) > 0 {
		return false
	}
	return strings.TrimSpace(v.Scalar) == ""
}
