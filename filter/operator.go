package filter

import (
	"strings"

	"github.com/kbukum/pmdakit/errors"
)

// Operator is a comparison keyword. The spellings are part of the wire
// contract with the aggregator.
type Operator string

const (
	OpEqual          Operator = "EQUAL"
	OpNotEqual       Operator = "NOT_EQUAL"
	OpLessThan       Operator = "LESS_THAN"
	OpLessOrEqual    Operator = "LESS_OR_EQUAL"
	OpGreaterThan    Operator = "GREATER_THAN"
	OpGreaterOrEqual Operator = "GREATER_OR_EQUAL"
	OpContains       Operator = "CONTAINS"
	OpStartsWith     Operator = "STARTS_WITH"
	OpEndsWith       Operator = "ENDS_WITH"
	OpRegex          Operator = "REGEX"
	OpIsNull         Operator = "IS_NULL"
	OpIn             Operator = "IN"
)

// AllOperators returns all valid operators.
func AllOperators() []Operator {
	return []Operator{
		OpEqual, OpNotEqual, OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual,
		OpContains, OpStartsWith, OpEndsWith, OpRegex, OpIsNull, OpIn,
	}
}

// aliases maps the basefilterselect.xsd spellings onto the canonical set.
var aliases = map[string]Operator{
	"LESS":    OpLessThan,
	"GREATER": OpGreaterThan,
}

// IsValid reports whether the operator is known.
func (o Operator) IsValid() bool {
	for _, v := range AllOperators() {
		if o == v {
			return true
		}
	}
	return false
}

// TakesList reports whether the operator expects a list operand.
// IN is the only list operator; all others take a single scalar.
func (o Operator) TakesList() bool {
	return o == OpIn
}

// String returns the wire keyword.
func (o Operator) String() string { return string(o) }

// ParseOperator resolves a keyword, case-insensitively, including the
// LESS/GREATER aliases used by the aggregator's XML schema.
func ParseOperator(s string) (Operator, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	if op := Operator(up); op.IsValid() {
		return op, nil
	}
	if op, ok := aliases[up]; ok {
		return op, nil
	}
	return "", errors.InvalidOperator(s)
}
