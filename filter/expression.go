package filter

import (
	"regexp"
	"strings"
	"sync"

	"github.com/kbukum/pmdakit/errors"
)

// Kind identifies the shape of an expression node.
type Kind uint8

const (
	KindComparison Kind = iota + 1
	KindAnd
	KindOr
	KindNot
)

// String returns the combinator keyword, or "COMPARISON".
func (k Kind) String() string {
	switch k {
	case KindComparison:
		return "COMPARISON"
	case KindAnd:
		return "AND"
	case KindOr:
		return "OR"
	case KindNot:
		return "NOT"
	default:
		return "UNKNOWN"
	}
}

// ignoreCaseKeyword flags a case-insensitive comparison in the text syntax.
const ignoreCaseKeyword = "IGNORE_CASE"

// Expression is an immutable filter tree node. The only implementations are
// *Comparison and *Logical.
type Expression interface {
	// Kind returns the node shape.
	Kind() Kind
	// Render returns the text filter syntax for the whole subtree.
	Render() string
	// String is the same as Render.
	String() string

	render(b *strings.Builder)
}

// Comparison compares the attribute at Path against an operand.
type Comparison struct {
	path       string
	op         Operator
	operand    Operand
	ignoreCase bool

	// REGEX patterns are compiled on first evaluation. Compare accepts any
	// pattern because the aggregator's regex dialect is not Go's.
	reOnce sync.Once
	re     *regexp.Regexp
	reErr  error
}

// CompareOption configures a comparison.
type CompareOption func(*Comparison)

// IgnoreCase makes the comparison case-insensitive.
func IgnoreCase() CompareOption {
	return func(c *Comparison) { c.ignoreCase = true }
}

// Compare builds a comparison. value is a scalar (string, bool, integer,
// finite float) or, for IN, a slice of scalars.
func Compare(path string, op Operator, value any, opts ...CompareOption) (Expression, error) {
	if !op.IsValid() {
		return nil, errors.InvalidOperator(string(op))
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}
	operand, err := operandOf(value)
	if err != nil {
		return nil, err
	}
	if op.TakesList() {
		if !operand.list {
			return nil, errors.InvalidOperandArity(string(op), "a list")
		}
		if len(operand.items) == 0 {
			return nil, errors.InvalidOperandArity(string(op), "a non-empty list")
		}
	} else if operand.list {
		return nil, errors.InvalidOperandArity(string(op), "a single scalar")
	}

	c := &Comparison{path: path, op: op, operand: operand}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Path returns the dotted attribute path, e.g. ManageableDevice.SystemName.
func (c *Comparison) Path() string { return c.path }

// Operator returns the comparison operator.
func (c *Comparison) Operator() Operator { return c.op }

// Operand returns the right-hand side.
func (c *Comparison) Operand() Operand { return c.operand }

// IgnoreCase reports whether the comparison is case-insensitive.
func (c *Comparison) IgnoreCase() bool { return c.ignoreCase }

// Kind implements Expression.
func (c *Comparison) Kind() Kind { return KindComparison }

// Render implements Expression.
func (c *Comparison) Render() string { return renderString(c) }

// String implements Expression.
func (c *Comparison) String() string { return c.Render() }

func (c *Comparison) render(b *strings.Builder) {
	b.WriteString(c.path)
	b.WriteByte(' ')
	b.WriteString(string(c.op))
	b.WriteByte(' ')
	c.operand.render(b)
	if c.ignoreCase {
		b.WriteByte(' ')
		b.WriteString(ignoreCaseKeyword)
	}
}

// Logical is an AND, OR or NOT node.
type Logical struct {
	kind     Kind
	children []Expression
}

// And combines two or more expressions; all must match.
func And(exprs ...Expression) (Expression, error) {
	return newLogical(KindAnd, exprs)
}

// Or combines two or more expressions; at least one must match.
func Or(exprs ...Expression) (Expression, error) {
	return newLogical(KindOr, exprs)
}

// Not negates a single expression.
func Not(expr Expression) (Expression, error) {
	if expr == nil {
		return nil, errors.InsufficientOperands(KindNot.String(), 1, 0)
	}
	return &Logical{kind: KindNot, children: []Expression{expr}}, nil
}

func newLogical(kind Kind, exprs []Expression) (Expression, error) {
	n := 0
	for _, e := range exprs {
		if e != nil {
			n++
		}
	}
	if len(exprs) < 2 || n != len(exprs) {
		return nil, errors.InsufficientOperands(kind.String(), 2, n)
	}
	children := make([]Expression, len(exprs))
	copy(children, exprs)
	return &Logical{kind: kind, children: children}, nil
}

// Children returns a copy of the child expressions.
func (l *Logical) Children() []Expression {
	out := make([]Expression, len(l.children))
	copy(out, l.children)
	return out
}

// Kind implements Expression.
func (l *Logical) Kind() Kind { return l.kind }

// Render implements Expression.
func (l *Logical) Render() string { return renderString(l) }

// String implements Expression.
func (l *Logical) String() string { return l.Render() }

func (l *Logical) render(b *strings.Builder) {
	if l.kind == KindNot {
		b.WriteString("NOT (")
		l.children[0].render(b)
		b.WriteByte(')')
		return
	}
	for i, child := range l.children {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(l.kind.String())
			b.WriteByte(' ')
		}
		b.WriteByte('(')
		child.render(b)
		b.WriteByte(')')
	}
}

func renderString(e Expression) string {
	var b strings.Builder
	e.render(&b)
	return b.String()
}

// Must panics if err is non-nil. For filters fixed at compile time.
func Must(expr Expression, err error) Expression {
	if err != nil {
		panic(err)
	}
	return expr
}

// Equal reports whether two expressions are structurally identical.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Comparison:
		y, ok := b.(*Comparison)
		return ok && x.path == y.path && x.op == y.op &&
			x.ignoreCase == y.ignoreCase && x.operand.equal(y.operand)
	case *Logical:
		y, ok := b.(*Logical)
		if !ok || x.kind != y.kind || len(x.children) != len(y.children) {
			return false
		}
		for i := range x.children {
			if !Equal(x.children[i], y.children[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

var reservedPaths = map[string]bool{"AND": true, "OR": true, "NOT": true, ignoreCaseKeyword: true}

// validatePath checks a dotted path: segments of [A-Za-z_][A-Za-z0-9_-]*.
func validatePath(path string) error {
	if path == "" {
		return errors.InvalidAttributePath(path, "empty")
	}
	if reservedPaths[path] {
		return errors.InvalidAttributePath(path, "reserved keyword")
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return errors.InvalidAttributePath(path, "empty segment")
		}
		for i, r := range seg {
			if !isIdentRune(r, i == 0) {
				return errors.InvalidAttributePath(path, "invalid character "+string(r))
			}
		}
	}
	return nil
}

func isIdentRune(r rune, first bool) bool {
	switch {
	case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case first:
		return false
	default:
		return r == '-' || (r >= '0' && r <= '9')
	}
}
