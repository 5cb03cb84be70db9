package filter

import (
	"math"
	"strings"
	"testing"

	"github.com/kbukum/pmdakit/errors"
)

func TestCompare_RenderIsDeterministic(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		op    Operator
		value any
		want  string
	}{
		{"string", "ManageableDevice.SystemName", OpEndsWith, "_router", `ManageableDevice.SystemName ENDS_WITH "_router"`},
		{"escaped string", "Device.Name", OpEqual, `a "b" \c`, `Device.Name EQUAL "a \"b\" \\c"`},
		{"int", "Device.ID", OpGreaterThan, 42, "Device.ID GREATER_THAN 42"},
		{"negative int", "Device.Offset", OpLessThan, int64(-7), "Device.Offset LESS_THAN -7"},
		{"whole float", "Metric.Value", OpGreaterOrEqual, 3.0, "Metric.Value GREATER_OR_EQUAL 3.0"},
		{"float", "Metric.Value", OpLessOrEqual, 0.25, "Metric.Value LESS_OR_EQUAL 0.25"},
		{"bool", "Profile.UseForWrite", OpEqual, false, "Profile.UseForWrite EQUAL false"},
		{"is null", "Device.Location", OpIsNull, true, "Device.Location IS_NULL true"},
		{"in ints", "Device.ID", OpIn, []int{1, 2, 3}, "Device.ID IN [1, 2, 3]"},
		{"in strings", "Lifecycle.State", OpIn, []string{"ACTIVE", "MAINTENANCE"}, `Lifecycle.State IN ["ACTIVE", "MAINTENANCE"]`},
		{"in mixed", "X.Y", OpIn, []any{"a", 1, true}, `X.Y IN ["a", 1, true]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Compare(tc.path, tc.op, tc.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			first := expr.Render()
			if first != tc.want {
				t.Errorf("expected %q, got %q", tc.want, first)
			}
			if second := expr.Render(); second != first {
				t.Errorf("render not deterministic: %q vs %q", first, second)
			}
			if expr.String() != first {
				t.Errorf("String() should equal Render()")
			}
		})
	}
}

func TestCompare_IgnoreCase(t *testing.T) {
	expr := Must(Compare("Device.Name", OpContains, "core", IgnoreCase()))
	if got := expr.Render(); got != `Device.Name CONTAINS "core" IGNORE_CASE` {
		t.Errorf("unexpected render %q", got)
	}
	c := expr.(*Comparison)
	if !c.IgnoreCase() {
		t.Error("expected IgnoreCase to be set")
	}
	if c.Path() != "Device.Name" || c.Operator() != OpContains {
		t.Errorf("unexpected accessors: %s %s", c.Path(), c.Operator())
	}
	if c.Operand().IsList() || c.Operand().Scalar().Text() != "core" {
		t.Errorf("unexpected operand %s", c.Operand().Render())
	}
}

func TestCompare_Errors(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		op    Operator
		value any
		code  errors.ErrorCode
	}{
		{"unknown operator", "x", Operator("BOGUS_OP"), 1, errors.ErrCodeInvalidOperator},
		{"empty operator", "x", Operator(""), 1, errors.ErrCodeInvalidOperator},
		{"scalar for IN", "x", OpIn, 5, errors.ErrCodeInvalidOperandArity},
		{"empty list for IN", "x", OpIn, []int{}, errors.ErrCodeInvalidOperandArity},
		{"list for EQUAL", "x", OpEqual, []string{"a"}, errors.ErrCodeInvalidOperandArity},
		{"list for STARTS_WITH", "x", OpStartsWith, []any{"a", "b"}, errors.ErrCodeInvalidOperandArity},
		{"nil value", "x", OpEqual, nil, errors.ErrCodeInvalidOperand},
		{"NaN", "x", OpEqual, math.NaN(), errors.ErrCodeInvalidOperand},
		{"Inf", "x", OpLessThan, math.Inf(1), errors.ErrCodeInvalidOperand},
		{"struct", "x", OpEqual, struct{}{}, errors.ErrCodeInvalidOperand},
		{"nested list", "x", OpIn, []any{[]int{1}}, errors.ErrCodeInvalidOperand},
		{"uint overflow", "x", OpEqual, uint64(math.MaxUint64), errors.ErrCodeInvalidOperand},
		{"zero operand", "x", OpEqual, Operand{}, errors.ErrCodeInvalidOperand},
		{"zero literal", "x", OpEqual, Literal{}, errors.ErrCodeInvalidOperand},
		{"NaN literal in list", "x", OpIn, []Literal{FloatLiteral(math.NaN()), IntLiteral(1)}, errors.ErrCodeInvalidOperand},
		{"zero literal in list", "x", OpIn, []Literal{{}, IntLiteral(1)}, errors.ErrCodeInvalidOperand},
		{"empty literal list", "x", OpIn, []Literal{}, errors.ErrCodeInvalidOperandArity},
		{"empty path", "", OpEqual, 1, errors.ErrCodeInvalidAttributePath},
		{"empty segment", "a..b", OpEqual, 1, errors.ErrCodeInvalidAttributePath},
		{"trailing dot", "a.", OpEqual, 1, errors.ErrCodeInvalidAttributePath},
		{"leading digit", "1a", OpEqual, 1, errors.ErrCodeInvalidAttributePath},
		{"space", "a b", OpEqual, 1, errors.ErrCodeInvalidAttributePath},
		{"keyword", "AND", OpEqual, 1, errors.ErrCodeInvalidAttributePath},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Compare(tc.path, tc.op, tc.value)
			if err == nil {
				t.Fatalf("expected error, got expression %q", expr.Render())
			}
			if !errors.HasCode(err, tc.code) {
				t.Errorf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestCompare_ReusesOperand(t *testing.T) {
	src := Must(Compare("a", OpIn, []Literal{IntLiteral(1), StringLiteral("b")}))
	expr, err := Compare("x", OpIn, src.(*Comparison).Operand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := expr.Render(); got != `x IN [1, "b"]` {
		t.Errorf("unexpected render %q", got)
	}
	back, err := Parse(expr.Render())
	if err != nil || !Equal(back, expr) {
		t.Errorf("rendered operand must parse back, got %v", err)
	}

	scalar := Must(Compare("a", OpEqual, 2.5)).(*Comparison).Operand()
	if _, err := Compare("x", OpIn, scalar); !errors.HasCode(err, errors.ErrCodeInvalidOperandArity) {
		t.Errorf("expected INVALID_OPERAND_ARITY for a scalar operand on IN, got %v", err)
	}
}

func TestCompare_InAcceptsList(t *testing.T) {
	expr, err := Compare("x", OpIn, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := expr.(*Comparison).Operand().Items()
	if len(items) != 3 || items[2].Interface() != int64(3) {
		t.Errorf("unexpected items %v", items)
	}
}

func TestLogical_OperandCounts(t *testing.T) {
	a := Must(Compare("a", OpEqual, 1))
	b := Must(Compare("b", OpEqual, 2))

	if _, err := And(a); !errors.IsInsufficientOperands(err) {
		t.Errorf("And with one operand: expected InsufficientOperands, got %v", err)
	}
	if _, err := Or(); !errors.IsInsufficientOperands(err) {
		t.Errorf("Or with no operands: expected InsufficientOperands, got %v", err)
	}
	if _, err := And(a, nil); !errors.IsInsufficientOperands(err) {
		t.Errorf("And with nil child: expected InsufficientOperands, got %v", err)
	}
	if _, err := Not(nil); !errors.IsInsufficientOperands(err) {
		t.Errorf("Not(nil): expected InsufficientOperands, got %v", err)
	}
	if _, err := And(a, b); err != nil {
		t.Errorf("And(a, b): unexpected error %v", err)
	}
}

func TestLogical_RenderComposes(t *testing.T) {
	a := Must(Compare("Device.Name", OpStartsWith, "core"))
	b := Must(Compare("Device.ID", OpIn, []int{1, 2}))
	c := Must(Compare("Device.Vendor", OpEqual, "acme", IgnoreCase()))

	and := Must(And(a, b))
	rendered := and.Render()
	if !strings.Contains(rendered, a.Render()) || !strings.Contains(rendered, b.Render()) {
		t.Errorf("AND rendering %q must embed both children", rendered)
	}
	if rendered != "("+a.Render()+") AND ("+b.Render()+")" {
		t.Errorf("unexpected AND rendering %q", rendered)
	}

	or := Must(Or(and, Must(Not(c))))
	want := `((Device.Name STARTS_WITH "core") AND (Device.ID IN [1, 2])) OR (NOT (Device.Vendor EQUAL "acme" IGNORE_CASE))`
	if got := or.Render(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if or.Kind() != KindOr || len(or.(*Logical).Children()) != 2 {
		t.Errorf("unexpected shape %s", or.Kind())
	}
}

func TestLogical_ChildrenIsCopy(t *testing.T) {
	a := Must(Compare("a", OpEqual, 1))
	b := Must(Compare("b", OpEqual, 2))
	in := []Expression{a, b}
	expr := Must(And(in...))
	in[0] = b

	children := expr.(*Logical).Children()
	children[1] = a
	if got := expr.Render(); got != "(a EQUAL 1) AND (b EQUAL 2)" {
		t.Errorf("expression changed through caller slices: %q", got)
	}
}

func TestRender_EndToEndScenario(t *testing.T) {
	expr := Must(And(
		Must(Compare("ManageableDevice.SystemName", OpEndsWith, "_router")),
		Must(Compare("Lifecycle.State", OpEqual, "ACTIVE")),
	))
	want := `(ManageableDevice.SystemName ENDS_WITH "_router") AND (Lifecycle.State EQUAL "ACTIVE")`
	if got := expr.Render(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEqual_Structural(t *testing.T) {
	build := func(v string) Expression {
		return Must(And(
			Must(Compare("a", OpEqual, v)),
			Must(Not(Must(Compare("b", OpIn, []int{1, 2})))),
		))
	}
	if !Equal(build("x"), build("x")) {
		t.Error("structurally equal trees must compare equal")
	}
	if Equal(build("x"), build("y")) {
		t.Error("different literals must not compare equal")
	}
	if Equal(Must(Compare("a", OpEqual, 1)), Must(Compare("a", OpEqual, "1"))) {
		t.Error("int and string literals must not compare equal")
	}
	if Equal(Must(Compare("a", OpEqual, "x")), Must(Compare("a", OpEqual, "x", IgnoreCase()))) {
		t.Error("ignore-case flag must participate in equality")
	}
	if !Equal(nil, nil) || Equal(build("x"), nil) {
		t.Error("nil handling is wrong")
	}
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"EQUAL", OpEqual},
		{"ends_with", OpEndsWith},
		{" in ", OpIn},
		{"LESS", OpLessThan},
		{"GREATER", OpGreaterThan},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseOperator(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}

	if _, err := ParseOperator("BOGUS_OP"); !errors.IsInvalidOperator(err) {
		t.Errorf("expected InvalidOperator, got %v", err)
	}
}

func TestOperator_TakesList(t *testing.T) {
	for _, op := range AllOperators() {
		if op.TakesList() != (op == OpIn) {
			t.Errorf("%s: TakesList=%v", op, op.TakesList())
		}
	}
}

func TestWalkAndPaths(t *testing.T) {
	expr := Must(Or(
		Must(And(
			Must(Compare("b.y", OpEqual, 1)),
			Must(Compare("a.x", OpEqual, 2)),
		)),
		Must(Not(Must(Compare("b.y", OpEqual, 3)))),
	))

	var kinds []string
	Walk(expr, func(e Expression) bool {
		kinds = append(kinds, e.Kind().String())
		return true
	})
	want := "OR AND COMPARISON COMPARISON NOT COMPARISON"
	if got := strings.Join(kinds, " "); got != want {
		t.Errorf("expected pre-order %q, got %q", want, got)
	}

	var visited int
	Walk(expr, func(e Expression) bool {
		visited++
		return e.Kind() != KindAnd
	})
	if visited != 4 {
		t.Errorf("expected pruning to skip AND children, visited %d", visited)
	}

	paths := Paths(expr)
	if len(paths) != 2 || paths[0] != "a.x" || paths[1] != "b.y" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func TestMust_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected Must to panic on error")
		}
	}()
	Must(Compare("x", Operator("BOGUS_OP"), 1))
}
