package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/pmdakit/errors"
)

// IDAttribute is the attribute the aggregator uses for resource identity.
// It is an ordinary attribute; ID is a convenience reader.
const IDAttribute = "ID"

// MetadataPrefix marks keys reserved for payload metadata such as @type and
// @version. Build and Set refuse attribute names carrying it.
const MetadataPrefix = "@"

func checkAttrName(name string) error {
	if name == "" {
		return errors.InvalidInput("attribute", "name is required")
	}
	if strings.HasPrefix(name, MetadataPrefix) {
		return errors.InvalidInput(name, "names starting with "+MetadataPrefix+" are reserved for type metadata")
	}
	return nil
}

// Type is the server-side model type and schema version of a model.
// The zero Type marks an untyped nested object.
type Type struct {
	Name    string
	Version string
}

// IsZero reports whether the type is unknown.
func (t Type) IsZero() bool { return t.Name == "" && t.Version == "" }

// String returns "Name" or "Name@Version".
func (t Type) String() string {
	if t.Version == "" {
		return t.Name
	}
	return t.Name + "@" + t.Version
}

// IsA is one entry of a model's IsAlso list: another model type the
// resource also implements, and the service URI it is reachable under.
type IsA struct {
	Name    string
	RootURL string
}

// Attribute is one name/value assignment for Build.
type Attribute struct {
	Name  string
	Value Value
}

// Attr returns an attribute assignment.
func Attr(name string, v Value) Attribute { return Attribute{Name: name, Value: v} }

// Model is a typed, versioned, open attribute record. It is not safe for
// concurrent mutation; each caller owns its instance.
type Model struct {
	typ    Type
	names  []string
	attrs  map[string]Value
	isAlso []IsA
}

func newModel(t Type) *Model {
	return &Model{typ: t, attrs: make(map[string]Value)}
}

// Build creates a model from explicit assignments. No schema is checked;
// later assignments to the same name overwrite earlier ones.
func Build(typeName, version string, attrs ...Attribute) (*Model, error) {
	if typeName == "" {
		return nil, errors.InvalidInput("type", "is required")
	}
	m := newModel(Type{Name: typeName, Version: version})
	for _, a := range attrs {
		if err := checkAttrName(a.Name); err != nil {
			return nil, err
		}
		m.put(a.Name, a.Value.clone())
	}
	return m, nil
}

// New creates an empty model of the given type. Attributes are added with
// Set; nested models are usually created this way.
func New(t Type) *Model { return newModel(t) }

func (m *Model) put(name string, v Value) {
	if _, ok := m.attrs[name]; !ok {
		m.names = append(m.names, name)
	}
	m.attrs[name] = v
}

// Type returns the model type.
func (m *Model) Type() Type { return m.typ }

// TypeName returns the model type name.
func (m *Model) TypeName() string { return m.typ.Name }

// Version returns the schema version.
func (m *Model) Version() string { return m.typ.Version }

// SetVersion changes the schema version.
func (m *Model) SetVersion(version string) { m.typ.Version = version }

// Names returns the attribute names in insertion order.
func (m *Model) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of attributes.
func (m *Model) Len() int { return len(m.names) }

// Has reports whether the attribute is present, null or not.
func (m *Model) Has(name string) bool {
	_, ok := m.attrs[name]
	return ok
}

// Get returns the attribute value. A missing attribute fails with
// AttributeNotFound; an attribute explicitly set to null returns Null().
func (m *Model) Get(name string) (Value, error) {
	v, ok := m.attrs[name]
	if !ok {
		return Value{}, errors.AttributeNotFound(m.typ.Name, name)
	}
	return v, nil
}

// Lookup returns the attribute value and whether it is present.
func (m *Model) Lookup(name string) (Value, bool) {
	v, ok := m.attrs[name]
	return v, ok
}

// Set adds or overwrites an attribute in place. A new attribute goes last;
// an overwritten one keeps its position.
func (m *Model) Set(name string, v Value) error {
	if err := checkAttrName(name); err != nil {
		return err
	}
	m.put(name, v.clone())
	return nil
}

// With returns a copy of m with the attribute set, leaving m unchanged.
func (m *Model) With(name string, v Value) (*Model, error) {
	c := m.Clone()
	if err := c.Set(name, v); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes an attribute in place.
func (m *Model) Delete(name string) error {
	if _, ok := m.attrs[name]; !ok {
		return errors.AttributeNotFound(m.typ.Name, name)
	}
	delete(m.attrs, name)
	for i, n := range m.names {
		if n == name {
			m.names = append(m.names[:i], m.names[i+1:]...)
			break
		}
	}
	return nil
}

// ID returns the text of the ID attribute when it holds a scalar.
func (m *Model) ID() (string, bool) {
	v, ok := m.attrs[IDAttribute]
	if !ok {
		return "", false
	}
	switch v.Kind() {
	case KindString, KindNumber:
		return v.Text(), true
	default:
		return "", false
	}
}

// IsAlso returns the other types this resource implements.
func (m *Model) IsAlso() []IsA {
	out := make([]IsA, len(m.isAlso))
	copy(out, m.isAlso)
	return out
}

// SetIsAlso replaces the IsAlso list. It is populated by decoders; the
// server ignores it on writes.
func (m *Model) SetIsAlso(isa ...IsA) {
	m.isAlso = append([]IsA(nil), isa...)
}

// Range calls fn for each attribute in order until fn returns false.
func (m *Model) Range(fn func(name string, v Value) bool) {
	for _, n := range m.names {
		if !fn(n, m.attrs[n]) {
			return
		}
	}
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	c := newModel(m.typ)
	for _, n := range m.names {
		c.put(n, m.attrs[n].clone())
	}
	c.isAlso = append([]IsA(nil), m.isAlso...)
	return c
}

// Equal reports whether both models have the same type and attributes.
// Attribute order and IsAlso are ignored.
func (m *Model) Equal(o *Model) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.typ != o.typ || len(m.attrs) != len(o.attrs) {
		return false
	}
	for n, v := range m.attrs {
		ov, ok := o.attrs[n]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// String returns "<Type with ID x>", or "<Type>" without an ID.
func (m *Model) String() string {
	name := m.typ.Name
	if name == "" {
		name = "object"
	}
	if id, ok := m.ID(); ok {
		return fmt.Sprintf("<%s with ID %s>", name, id)
	}
	return "<" + name + ">"
}

// Dump returns the indented JSON payload. For debugging only.
func (m *Model) Dump() string {
	b, err := json.MarshalIndent(m.ToPayload(), "", "  ")
	if err != nil {
		return m.String()
	}
	return string(b)
}

func invalidValue(reason string) error {
	return errors.InvalidInput("value", reason)
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
