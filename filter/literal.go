package filter

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/kbukum/pmdakit/errors"
)

// LiteralKind identifies the scalar type held by a Literal.
type LiteralKind uint8

const (
	LiteralString LiteralKind = iota + 1
	LiteralInt
	LiteralFloat
	LiteralBool
)

// String returns the kind name.
func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralInt:
		return "int"
	case LiteralFloat:
		return "float"
	case LiteralBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Literal is a scalar comparison value.
type Literal struct {
	kind LiteralKind
	s    string
	i    int64
	f    float64
	b    bool
}

// StringLiteral returns a string literal.
func StringLiteral(s string) Literal { return Literal{kind: LiteralString, s: s} }

// IntLiteral returns an integer literal.
func IntLiteral(i int64) Literal { return Literal{kind: LiteralInt, i: i} }

// FloatLiteral returns a float literal. Non-finite values are rejected by
// Compare, not here.
func FloatLiteral(f float64) Literal { return Literal{kind: LiteralFloat, f: f} }

// BoolLiteral returns a boolean literal.
func BoolLiteral(b bool) Literal { return Literal{kind: LiteralBool, b: b} }

// Kind returns the scalar type of the literal.
func (l Literal) Kind() LiteralKind { return l.kind }

// Text returns the unquoted textual form, as placed in an XML element body.
func (l Literal) Text() string {
	switch l.kind {
	case LiteralString:
		return l.s
	case LiteralInt:
		return strconv.FormatInt(l.i, 10)
	case LiteralFloat:
		return formatFloat(l.f)
	case LiteralBool:
		return strconv.FormatBool(l.b)
	default:
		return ""
	}
}

// Render returns the literal encoded for the text filter syntax: strings
// are quoted and escaped, everything else is its plain text form.
func (l Literal) Render() string {
	if l.kind == LiteralString {
		return strconv.Quote(l.s)
	}
	return l.Text()
}

// Interface returns the literal as a Go value (string, int64, float64 or bool).
func (l Literal) Interface() any {
	switch l.kind {
	case LiteralString:
		return l.s
	case LiteralInt:
		return l.i
	case LiteralFloat:
		return l.f
	case LiteralBool:
		return l.b
	default:
		return nil
	}
}

// formatFloat always keeps a fraction or exponent so the value parses back
// as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Operand is the right-hand side of a comparison: one scalar or a list.
type Operand struct {
	list  bool
	items []Literal
}

// IsList reports whether the operand is a list.
func (o Operand) IsList() bool { return o.list }

// Scalar returns the single literal of a scalar operand.
func (o Operand) Scalar() Literal {
	if len(o.items) == 0 {
		return Literal{}
	}
	return o.items[0]
}

// Items returns a copy of the operand's literals.
func (o Operand) Items() []Literal {
	out := make([]Literal, len(o.items))
	copy(out, o.items)
	return out
}

// Render encodes the operand; lists render as [a, b, c].
func (o Operand) Render() string {
	var b strings.Builder
	o.render(&b)
	return b.String()
}

func (o Operand) render(b *strings.Builder) {
	if !o.list {
		b.WriteString(o.Scalar().Render())
		return
	}
	b.WriteByte('[')
	for i, it := range o.items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(it.Render())
	}
	b.WriteByte(']')
}

func (o Operand) equal(other Operand) bool {
	if o.list != other.list || len(o.items) != len(other.items) {
		return false
	}
	for i := range o.items {
		if o.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// operandOf normalizes a caller-supplied value into an Operand.
func operandOf(value any) (Operand, error) {
	switch v := value.(type) {
	case Operand:
		if !v.list && len(v.items) != 1 {
			return Operand{}, errors.InvalidOperand(value, "scalar operand must hold exactly one literal")
		}
		checked, err := listOperand(len(v.items), func(i int) any { return v.items[i] })
		if err != nil {
			return Operand{}, err
		}
		checked.list = v.list
		return checked, nil
	case []Literal:
		return listOperand(len(v), func(i int) any { return v[i] })
	case []string:
		items := make([]Literal, len(v))
		for i, s := range v {
			items[i] = StringLiteral(s)
		}
		return Operand{list: true, items: items}, nil
	case []any:
		return listOperand(len(v), func(i int) any { return v[i] })
	}

	rv := reflect.ValueOf(value)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		return listOperand(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}

	lit, err := literalOf(value)
	if err != nil {
		return Operand{}, err
	}
	return Operand{items: []Literal{lit}}, nil
}

func listOperand(n int, at func(int) any) (Operand, error) {
	items := make([]Literal, n)
	for i := 0; i < n; i++ {
		lit, err := literalOf(at(i))
		if err != nil {
			return Operand{}, err
		}
		items[i] = lit
	}
	return Operand{list: true, items: items}, nil
}

// literalOf converts a Go scalar into a Literal.
func literalOf(value any) (Literal, error) {
	switch v := value.(type) {
	case Literal:
		if v.kind == 0 {
			return Literal{}, errors.InvalidOperand(value, "zero literal")
		}
		if v.kind == LiteralFloat {
			return checkFinite(v.f)
		}
		return v, nil
	case string:
		return StringLiteral(v), nil
	case bool:
		return BoolLiteral(v), nil
	case int:
		return IntLiteral(int64(v)), nil
	case int8:
		return IntLiteral(int64(v)), nil
	case int16:
		return IntLiteral(int64(v)), nil
	case int32:
		return IntLiteral(int64(v)), nil
	case int64:
		return IntLiteral(v), nil
	case uint:
		return uintLiteral(uint64(v))
	case uint8:
		return IntLiteral(int64(v)), nil
	case uint16:
		return IntLiteral(int64(v)), nil
	case uint32:
		return IntLiteral(int64(v)), nil
	case uint64:
		return uintLiteral(v)
	case float32:
		return checkFinite(float64(v))
	case float64:
		return checkFinite(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return IntLiteral(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Literal{}, errors.InvalidOperand(value, "not a number")
		}
		return checkFinite(f)
	case nil:
		return Literal{}, errors.InvalidOperand(value, "null is not a comparison value, use IS_NULL")
	default:
		return Literal{}, errors.InvalidOperand(value, "must be a string, number or bool")
	}
}

func uintLiteral(u uint64) (Literal, error) {
	if u > math.MaxInt64 {
		return Literal{}, errors.InvalidOperand(u, "integer overflows int64")
	}
	return IntLiteral(int64(u)), nil
}

func checkFinite(f float64) (Literal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Literal{}, errors.InvalidOperand(f, "must be finite")
	}
	return FloatLiteral(f), nil
}
