package filter

import (
	"testing"

	"github.com/kbukum/pmdakit/errors"
)

func TestParse_RoundTrip(t *testing.T) {
	exprs := []Expression{
		Must(Compare("ManageableDevice.SystemName", OpEndsWith, "_router")),
		Must(Compare("Device.Name", OpEqual, "tab\there \"quoted\" ünï", IgnoreCase())),
		Must(Compare("Device.ID", OpIn, []any{1, "two", 3.5, false})),
		Must(Compare("Metric.Value", OpLessThan, -1.5e-9)),
		Must(Compare("Metric.Value", OpGreaterOrEqual, 1e21)),
		Must(Compare("Metric.Count", OpGreaterThan, int64(-9223372036854775808))),
		Must(Compare("Device-Group.my_attr", OpIsNull, true)),
		Must(Compare("Device.Name", OpRegex, `^core-\d+$`)),
		Must(Not(Must(Or(
			Must(Compare("a.b", OpEqual, 1)),
			Must(And(
				Must(Compare("c.d", OpContains, "x")),
				Must(Compare("e.f", OpStartsWith, "y")),
				Must(Not(Must(Compare("g.h", OpNotEqual, true)))),
			)),
		)))),
	}

	for _, expr := range exprs {
		t.Run(expr.Render(), func(t *testing.T) {
			parsed, err := Parse(expr.Render())
			if err != nil {
				t.Fatalf("parse %q: %v", expr.Render(), err)
			}
			if !Equal(parsed, expr) {
				t.Errorf("round trip changed the tree:\n in: %s\nout: %s", expr.Render(), parsed.Render())
			}
		})
	}
}

func TestParse_Flexible(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare comparison", `Device.Name EQUAL "x"`, `Device.Name EQUAL "x"`},
		{"extra whitespace", "  ( a.b   EQUAL 1 )\n AND\t(c.d EQUAL 2)  ", "(a.b EQUAL 1) AND (c.d EQUAL 2)"},
		{"lowercase operator", `a.b ends_with "z"`, `a.b ENDS_WITH "z"`},
		{"schema alias", `a.b LESS 3`, `a.b LESS_THAN 3`},
		{"unparenthesized chain", `a.b EQUAL 1 OR c.d EQUAL 2 OR e.f EQUAL 3`, "(a.b EQUAL 1) OR (c.d EQUAL 2) OR (e.f EQUAL 3)"},
		{"not without parens", `NOT a.b EQUAL 1`, "NOT (a.b EQUAL 1)"},
		{"redundant parens", `((a.b EQUAL 1))`, "a.b EQUAL 1"},
		{"plus sign", `a.b EQUAL +4`, "a.b EQUAL 4"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Parse(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := expr.Render(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errors.ErrorCode
	}{
		{"empty", "", errors.ErrCodeInvalidFilterSyntax},
		{"missing operand", "a.b EQUAL", errors.ErrCodeInvalidFilterSyntax},
		{"unterminated string", `a.b EQUAL "x`, errors.ErrCodeInvalidFilterSyntax},
		{"unbalanced paren", "(a.b EQUAL 1", errors.ErrCodeInvalidFilterSyntax},
		{"trailing token", "a.b EQUAL 1)", errors.ErrCodeInvalidFilterSyntax},
		{"mixed combinators", "a.b EQUAL 1 AND c.d EQUAL 2 OR e.f EQUAL 3", errors.ErrCodeInvalidFilterSyntax},
		{"bad character", "a.b EQUAL 1 & c", errors.ErrCodeInvalidFilterSyntax},
		{"unclosed list", "a.b IN [1, 2", errors.ErrCodeInvalidFilterSyntax},
		{"bad number", "a.b EQUAL 1.2.3", errors.ErrCodeInvalidFilterSyntax},
		{"unknown operator", "a.b LIKE 1", errors.ErrCodeInvalidOperator},
		{"scalar IN", "a.b IN 1", errors.ErrCodeInvalidOperandArity},
		{"list EQUAL", "a.b EQUAL [1]", errors.ErrCodeInvalidOperandArity},
		{"empty IN", "a.b IN []", errors.ErrCodeInvalidOperandArity},
		{"bad path", "a..b EQUAL 1", errors.ErrCodeInvalidAttributePath},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Parse(tc.in)
			if err == nil {
				t.Fatalf("expected error, got %q", expr.Render())
			}
			if !errors.HasCode(err, tc.code) {
				t.Errorf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestParse_ErrorOffset(t *testing.T) {
	_, err := Parse("a.b EQUAL 1 )")
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Details["offset"] != 12 {
		t.Errorf("expected offset 12, got %v", appErr.Details["offset"])
	}
}
