package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindModel
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindModel:
		return "model"
	default:
		return "unknown"
	}
}

// Value is an attribute value: null, bool, number, string, a list of values
// or a nested model. The zero Value is null.
//
// Numbers keep their decimal text so large integers survive a round trip.
type Value struct {
	kind  ValueKind
	b     bool
	text  string
	list  []Value
	model *Model
}

// Null returns the explicit null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer number value.
func Int(i int64) Value { return Value{kind: KindNumber, text: strconv.FormatInt(i, 10)} }

// Float returns a number value. NaN and infinities are not representable and
// are stored as null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Number returns a number value from its decimal text, as produced by a
// json.Decoder with UseNumber.
func Number(n json.Number) Value { return Value{kind: KindNumber, text: n.String()} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// List returns a list value holding copies of items.
func List(items ...Value) Value {
	out := make([]Value, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return Value{kind: KindList, list: out}
}

// Nested wraps a model as an attribute value. A nil model is null.
func Nested(m *Model) Value {
	if m == nil {
		return Null()
	}
	return Value{kind: KindModel, model: m}
}

// Kind returns the variant.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is the explicit null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and whether v is one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string and whether v is one.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.text, true
}

// AsNumber returns the number text and whether v is a number.
func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.text), true
}

// AsInt returns the integer value of a number, or of a string holding one.
// XML payloads carry every scalar as text, so both are accepted.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber && v.kind != KindString {
		return 0, false
	}
	i, err := strconv.ParseInt(strings.TrimSpace(v.text), 10, 64)
	return i, err == nil
}

// AsFloat returns the float value of a number, or of a string holding one.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber && v.kind != KindString {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
	return f, err == nil
}

// AsList returns a copy of the list items and whether v is a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out, true
}

// AsModel returns the nested model and whether v is one. The model is shared
// with the parent; Clone it before handing it to another owner.
func (v Value) AsModel() (*Model, bool) { return v.model, v.kind == KindModel }

// Text returns the scalar text of v: the string itself, the number text,
// "true"/"false", or "" for null, lists and models.
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Interface converts v to plain Go values: nil, bool, json.Number, string,
// []any or *Model.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.text)
	case KindString:
		return v.text
	case KindList:
		out := make([]any, len(v.list))
		for i, it := range v.list {
			out[i] = it.Interface()
		}
		return out
	case KindModel:
		return v.model
	default:
		return nil
	}
}

// Equal reports deep equality. Numbers compare by numeric value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		if v.text == o.text {
			return true
		}
		a, errA := strconv.ParseFloat(v.text, 64)
		b, errB := strconv.ParseFloat(o.text, 64)
		return errA == nil && errB == nil && a == b
	case KindString:
		return v.text == o.text
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindModel:
		return v.model.Equal(o.model)
	default:
		return false
	}
}

// String renders v for debugging.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.text)
	case KindList:
		parts := make([]string, len(v.list))
		for i, it := range v.list {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindModel:
		return v.model.String()
	default:
		return v.Text()
	}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindList:
		return List(v.list...)
	case KindModel:
		return Value{kind: KindModel, model: v.model.Clone()}
	default:
		return v
	}
}

// ValueOf converts a Go value into a Value. Accepted: nil, bool, string, all
// integer and float types, json.Number, Value, *Model, map[string]any (as an
// untyped nested model) and slices of those.
func ValueOf(x any) (Value, error) {
	v, reason := valueOf(x, nil)
	if reason != "" {
		return Value{}, invalidValue(reason)
	}
	return v, nil
}

// valueOf returns a non-empty reason on failure so callers can pick the
// error kind.
func valueOf(x any, nested func(map[string]any) (*Model, string)) (Value, string) {
	switch t := x.(type) {
	case nil:
		return Null(), ""
	case Value:
		return t.clone(), ""
	case *Model:
		return Nested(t), ""
	case bool:
		return Bool(t), ""
	case string:
		return String(t), ""
	case json.Number:
		if _, err := strconv.ParseFloat(t.String(), 64); err != nil {
			return Value{}, fmt.Sprintf("invalid number %q", t.String())
		}
		return Number(t), ""
	case int:
		return Int(int64(t)), ""
	case int8:
		return Int(int64(t)), ""
	case int16:
		return Int(int64(t)), ""
	case int32:
		return Int(int64(t)), ""
	case int64:
		return Int(t), ""
	case uint:
		return Value{kind: KindNumber, text: strconv.FormatUint(uint64(t), 10)}, ""
	case uint8:
		return Int(int64(t)), ""
	case uint16:
		return Int(int64(t)), ""
	case uint32:
		return Int(int64(t)), ""
	case uint64:
		return Value{kind: KindNumber, text: strconv.FormatUint(t, 10)}, ""
	case float32:
		return finite(float64(t))
	case float64:
		return finite(t)
	case []Value:
		return List(t...), ""
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Value{kind: KindList, list: items}, ""
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			v, reason := valueOf(it, nested)
			if reason != "" {
				return Value{}, fmt.Sprintf("list item %d: %s", i, reason)
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, ""
	case map[string]any:
		if nested == nil {
			nested = untypedModel
		}
		m, reason := nested(t)
		if reason != "" {
			return Value{}, reason
		}
		return Nested(m), ""
	default:
		return Value{}, fmt.Sprintf("unsupported value type %T", x)
	}
}

func finite(f float64) (Value, string) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, "number must be finite"
	}
	return Float(f), ""
}

func untypedModel(obj map[string]any) (*Model, string) {
	m := newModel(Type{})
	for _, k := range sortedKeys(obj) {
		v, reason := valueOf(obj[k], untypedModel)
		if reason != "" {
			return nil, fmt.Sprintf("attribute %q: %s", k, reason)
		}
		m.put(k, v)
	}
	return m, ""
}
