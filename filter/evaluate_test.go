package filter

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/kbukum/pmdakit/errors"
)

func TestEvaluate_Comparisons(t *testing.T) {
	device := MapResolver(map[string]any{
		"ManageableDevice.SystemName": "edge_router",
		"ManageableDevice.ID":         "1234567",
		"Device.Rank":                 json.Number("2"),
		"Device.Load":                 0.75,
		"Device.UseForWrite":          "false",
		"Device.Location":             nil,
		"Device.Tags":                 []any{"core", "WAN"},
		"Lifecycle.State":             "ACTIVE",
	})

	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{"equal", Must(Compare("Lifecycle.State", OpEqual, "ACTIVE")), true},
		{"equal case sensitive", Must(Compare("Lifecycle.State", OpEqual, "active")), false},
		{"equal ignore case", Must(Compare("Lifecycle.State", OpEqual, "active", IgnoreCase())), true},
		{"equal numeric text", Must(Compare("ManageableDevice.ID", OpEqual, 1234567)), true},
		{"not equal", Must(Compare("Lifecycle.State", OpNotEqual, "RETIRED")), true},
		{"not equal missing", Must(Compare("Device.Missing", OpNotEqual, "x")), true},
		{"ends with", Must(Compare("ManageableDevice.SystemName", OpEndsWith, "_router")), true},
		{"starts with", Must(Compare("ManageableDevice.SystemName", OpStartsWith, "core")), false},
		{"contains ignore case", Must(Compare("ManageableDevice.SystemName", OpContains, "ROUTER", IgnoreCase())), true},
		{"numeric greater", Must(Compare("Device.Rank", OpGreaterThan, 1)), true},
		{"numeric not lexical", Must(Compare("Device.Rank", OpLessThan, 10)), true},
		{"float less or equal", Must(Compare("Device.Load", OpLessOrEqual, 0.75)), true},
		{"float greater or equal", Must(Compare("Device.Load", OpGreaterOrEqual, 1)), false},
		{"string order", Must(Compare("Lifecycle.State", OpLessThan, "B")), true},
		{"bool", Must(Compare("Device.UseForWrite", OpEqual, false)), true},
		{"in", Must(Compare("Lifecycle.State", OpIn, []string{"MAINTENANCE", "ACTIVE"})), true},
		{"in miss", Must(Compare("Lifecycle.State", OpIn, []string{"MAINTENANCE"})), false},
		{"regex", Must(Compare("ManageableDevice.SystemName", OpRegex, `^edge_\w+$`)), true},
		{"regex ignore case", Must(Compare("ManageableDevice.SystemName", OpRegex, `^EDGE`, IgnoreCase())), true},
		{"is null explicit", Must(Compare("Device.Location", OpIsNull, true)), true},
		{"is null missing", Must(Compare("Device.Missing", OpIsNull, true)), true},
		{"is null present", Must(Compare("Lifecycle.State", OpIsNull, true)), false},
		{"is not null", Must(Compare("Lifecycle.State", OpIsNull, false)), true},
		{"missing never equal", Must(Compare("Device.Missing", OpEqual, "x")), false},
		{"null never contains", Must(Compare("Device.Location", OpContains, "x")), false},
		{"multi-valued any", Must(Compare("Device.Tags", OpEqual, "wan", IgnoreCase())), true},
		{"multi-valued none", Must(Compare("Device.Tags", OpEqual, "lan")), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Evaluate(tc.expr, device)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("%s: expected %v, got %v", tc.expr.Render(), tc.want, got)
			}
		})
	}
}

func TestEvaluate_Logical(t *testing.T) {
	r := MapResolver(map[string]any{"a": "1", "b": "2"})
	yes := Must(Compare("a", OpEqual, 1))
	no := Must(Compare("b", OpEqual, 1))

	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{"and true", Must(And(yes, yes)), true},
		{"and false", Must(And(yes, no)), false},
		{"or true", Must(Or(no, yes)), true},
		{"or false", Must(Or(no, no)), false},
		{"not", Must(Not(no)), true},
		{"nested", Must(Not(Must(Or(no, Must(And(yes, no)))))), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Evaluate(tc.expr, r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestEvaluate_InvalidRegex(t *testing.T) {
	expr := Must(Compare("a", OpRegex, "(unclosed"))
	_, err := Evaluate(expr, MapResolver(map[string]any{"a": "x"}))
	if !errors.HasCode(err, errors.ErrCodeInvalidOperand) {
		t.Errorf("expected InvalidOperand, got %v", err)
	}
}

func TestEvaluate_RegexCompiledOnce(t *testing.T) {
	expr := Must(Compare("a", OpRegex, "^core_", IgnoreCase()))
	c := expr.(*Comparison)

	var wg sync.WaitGroup
	for _, v := range []string{"CORE_r1", "edge_r2", "core_r3", "x"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Evaluate(expr, MapResolver(map[string]any{"a": v})); err != nil {
				t.Errorf("Evaluate(%s): %v", v, err)
			}
		}()
	}
	wg.Wait()

	first, err := c.pattern()
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	if again, _ := c.pattern(); again != first {
		t.Error("the pattern must be compiled once and reused")
	}

	bad := Must(Compare("a", OpRegex, "(unclosed")).(*Comparison)
	_, err1 := bad.pattern()
	_, err2 := bad.pattern()
	if !errors.HasCode(err1, errors.ErrCodeInvalidOperand) || err1 != err2 {
		t.Errorf("compile error must be kept, got %v and %v", err1, err2)
	}
}

func TestEvaluate_NilExpression(t *testing.T) {
	if _, err := Evaluate(nil, MapResolver(nil)); err == nil {
		t.Error("expected error for nil expression")
	}
}
