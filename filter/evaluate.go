package filter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kbukum/pmdakit/errors"
)

// Resolver looks up the value at an attribute path. It reports false when
// the attribute is absent. Multi-valued attributes are returned as []any and
// match when any element matches.
type Resolver func(path string) (any, bool)

// MapResolver resolves paths against a flat map keyed by full path.
func MapResolver(values map[string]any) Resolver {
	return func(path string) (any, bool) {
		v, ok := values[path]
		return v, ok
	}
}

// Evaluate reports whether expr matches the values served by r.
//
// Comparisons are numeric when both sides parse as numbers and textual
// otherwise. IS_NULL true matches absent and null attributes. NOT_EQUAL is
// the negation of EQUAL, so it also matches absent attributes.
func Evaluate(expr Expression, r Resolver) (bool, error) {
	switch e := expr.(type) {
	case *Comparison:
		return evalComparison(e, r)
	case *Logical:
		switch e.kind {
		case KindNot:
			ok, err := Evaluate(e.children[0], r)
			return !ok, err
		case KindAnd:
			for _, child := range e.children {
				ok, err := Evaluate(child, r)
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		case KindOr:
			for _, child := range e.children {
				ok, err := Evaluate(child, r)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		}
	}
	return false, errors.InvalidInput("expression", fmt.Sprintf("unsupported node %T", expr))
}

func evalComparison(c *Comparison, r Resolver) (bool, error) {
	value, present := r(c.path)

	switch c.op {
	case OpIsNull:
		isNull := !present || value == nil
		return isNull == truthy(c.operand.Scalar()), nil
	case OpNotEqual:
		eq, err := anyMatch(value, present, func(s string) (bool, error) {
			return equalText(s, c.operand.Scalar(), c.ignoreCase), nil
		})
		return !eq, err
	}

	var re *regexp.Regexp
	if c.op == OpRegex {
		var err error
		if re, err = c.pattern(); err != nil {
			return false, err
		}
	}

	return anyMatch(value, present, func(s string) (bool, error) {
		return matchText(c, s, re), nil
	})
}

// pattern compiles the REGEX operand once; later calls reuse the result,
// including a compile error.
func (c *Comparison) pattern() (*regexp.Regexp, error) {
	c.reOnce.Do(func() {
		pattern := c.operand.Scalar().Text()
		if c.ignoreCase {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			c.reErr = errors.InvalidOperand(c.operand.Scalar().Text(), "invalid regular expression").WithCause(err)
			return
		}
		c.re = re
	})
	return c.re, c.reErr
}

func anyMatch(value any, present bool, match func(string) (bool, error)) (bool, error) {
	if !present || value == nil {
		return false, nil
	}
	if list, ok := value.([]any); ok {
		for _, item := range list {
			ok, err := anyMatch(item, item != nil, match)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	if list, ok := value.([]string); ok {
		for _, item := range list {
			if ok, err := match(item); err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return match(textOf(value))
}

func matchText(c *Comparison, s string, re *regexp.Regexp) bool {
	lit := c.operand.Scalar()
	switch c.op {
	case OpEqual:
		return equalText(s, lit, c.ignoreCase)
	case OpIn:
		for _, item := range c.operand.items {
			if equalText(s, item, c.ignoreCase) {
				return true
			}
		}
		return false
	case OpLessThan:
		return order(s, lit, c.ignoreCase) < 0
	case OpLessOrEqual:
		return order(s, lit, c.ignoreCase) <= 0
	case OpGreaterThan:
		return order(s, lit, c.ignoreCase) > 0
	case OpGreaterOrEqual:
		return order(s, lit, c.ignoreCase) >= 0
	case OpContains:
		a, b := fold(s, lit.Text(), c.ignoreCase)
		return strings.Contains(a, b)
	case OpStartsWith:
		a, b := fold(s, lit.Text(), c.ignoreCase)
		return strings.HasPrefix(a, b)
	case OpEndsWith:
		a, b := fold(s, lit.Text(), c.ignoreCase)
		return strings.HasSuffix(a, b)
	case OpRegex:
		return re.MatchString(s)
	default:
		return false
	}
}

func equalText(s string, lit Literal, ignoreCase bool) bool {
	if x, y, ok := numbers(s, lit); ok {
		return x == y
	}
	if lit.kind == LiteralBool {
		if b, err := strconv.ParseBool(s); err == nil {
			return b == lit.b
		}
	}
	a, b := fold(s, lit.Text(), ignoreCase)
	return a == b
}

func order(s string, lit Literal, ignoreCase bool) int {
	if x, y, ok := numbers(s, lit); ok {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	a, b := fold(s, lit.Text(), ignoreCase)
	return strings.Compare(a, b)
}

func numbers(s string, lit Literal) (float64, float64, bool) {
	var y float64
	switch lit.kind {
	case LiteralInt:
		y = float64(lit.i)
	case LiteralFloat:
		y = lit.f
	case LiteralString:
		f, err := strconv.ParseFloat(lit.s, 64)
		if err != nil {
			return 0, 0, false
		}
		y = f
	default:
		return 0, 0, false
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, 0, false
	}
	return x, y, true
}

func fold(a, b string, ignoreCase bool) (string, string) {
	if ignoreCase {
		return strings.ToLower(a), strings.ToLower(b)
	}
	return a, b
}

// truthy reads the IS_NULL operand; a missing or non-boolean operand means true.
func truthy(lit Literal) bool {
	switch lit.kind {
	case LiteralBool:
		return lit.b
	case LiteralString:
		b, err := strconv.ParseBool(lit.s)
		return err != nil || b
	default:
		return true
	}
}

func textOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
