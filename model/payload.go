package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kbukum/pmdakit/errors"
)

// Envelope decides where type and version metadata sit in a JSON payload.
// The aggregator's JSON shape is a deployment detail, so the policy is
// chosen by the resource client rather than fixed here.
type Envelope interface {
	// Wrap places t around the attribute object. A zero t must return attrs
	// unchanged.
	Wrap(t Type, attrs map[string]any) map[string]any
	// Unwrap splits a payload object into its metadata and attributes.
	// Objects without metadata return a zero Type and the object itself.
	Unwrap(obj map[string]any) (Type, map[string]any)
}

// SiblingEnvelope stores metadata as reserved keys next to the attributes:
//
//	{"@type": "ManageableDevice", "@version": "1.0.0", "SystemName": "r1"}
//
// Custom keys should keep MetadataPrefix: attributes can never use it, so
// metadata cannot overwrite an attribute.
type SiblingEnvelope struct {
	TypeKey    string
	VersionKey string
}

// DefaultEnvelope is used when no WithEnvelope option is given.
var DefaultEnvelope Envelope = SiblingEnvelope{TypeKey: "@type", VersionKey: "@version"}

// Wrap implements Envelope.
func (e SiblingEnvelope) Wrap(t Type, attrs map[string]any) map[string]any {
	if t.IsZero() {
		return attrs
	}
	out := make(map[string]any, len(attrs)+2)
	for k, v := range attrs {
		out[k] = v
	}
	out[e.TypeKey] = t.Name
	if t.Version != "" {
		out[e.VersionKey] = t.Version
	}
	return out
}

// Unwrap implements Envelope.
func (e SiblingEnvelope) Unwrap(obj map[string]any) (Type, map[string]any) {
	name, ok := obj[e.TypeKey].(string)
	if !ok {
		return Type{}, obj
	}
	t := Type{Name: name}
	attrs := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == e.TypeKey {
			continue
		}
		if k == e.VersionKey {
			if s, ok := v.(string); ok {
				t.Version = s
				continue
			}
		}
		attrs[k] = v
	}
	return t, attrs
}

// WrappedEnvelope nests the attributes under their own key:
//
//	{"type": "ManageableDevice", "version": "1.0.0", "attributes": {...}}
type WrappedEnvelope struct {
	TypeKey       string
	VersionKey    string
	AttributesKey string
}

// DefaultWrappedEnvelope uses the keys type, version and attributes.
var DefaultWrappedEnvelope = WrappedEnvelope{TypeKey: "type", VersionKey: "version", AttributesKey: "attributes"}

// Wrap implements Envelope.
func (e WrappedEnvelope) Wrap(t Type, attrs map[string]any) map[string]any {
	if t.IsZero() {
		return attrs
	}
	out := map[string]any{e.TypeKey: t.Name, e.AttributesKey: attrs}
	if t.Version != "" {
		out[e.VersionKey] = t.Version
	}
	return out
}

// Unwrap implements Envelope.
func (e WrappedEnvelope) Unwrap(obj map[string]any) (Type, map[string]any) {
	name, ok := obj[e.TypeKey].(string)
	if !ok {
		return Type{}, obj
	}
	attrs, ok := obj[e.AttributesKey].(map[string]any)
	if !ok {
		return Type{}, obj
	}
	t := Type{Name: name}
	t.Version, _ = obj[e.VersionKey].(string)
	return t, attrs
}

// PayloadOption configures payload conversion.
type PayloadOption func(*payloadOptions)

type payloadOptions struct {
	envelope Envelope
}

// WithEnvelope selects the metadata envelope.
func WithEnvelope(env Envelope) PayloadOption {
	return func(o *payloadOptions) {
		if env != nil {
			o.envelope = env
		}
	}
}

func applyPayloadOptions(opts []PayloadOption) payloadOptions {
	o := payloadOptions{envelope: DefaultEnvelope}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FromPayload builds a model from a decoded JSON object. typeName and
// version override whatever the envelope carries; when typeName is empty the
// envelope must supply it. Nested objects become nested models, typed when
// they carry envelope metadata and untyped otherwise.
func FromPayload(typeName, version string, payload any, opts ...PayloadOption) (*Model, error) {
	o := applyPayloadOptions(opts)
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, errors.MalformedPayload(fmt.Sprintf("expected a JSON object, got %s", jsonKind(payload)))
	}

	t, attrs := o.envelope.Unwrap(obj)
	if typeName != "" {
		t.Name = typeName
	}
	if version != "" {
		t.Version = version
	}
	if t.Name == "" {
		return nil, errors.MalformedPayload("payload carries no type name")
	}

	m, reason := o.fill(t, attrs)
	if reason != "" {
		return nil, errors.MalformedPayload(reason)
	}
	return m, nil
}

func (o payloadOptions) fill(t Type, attrs map[string]any) (*Model, string) {
	m := newModel(t)
	for _, k := range sortedKeys(attrs) {
		v, reason := valueOf(attrs[k], o.nested)
		if reason != "" {
			return nil, fmt.Sprintf("attribute %q: %s", k, reason)
		}
		m.put(k, v)
	}
	return m, ""
}

func (o payloadOptions) nested(obj map[string]any) (*Model, string) {
	t, attrs := o.envelope.Unwrap(obj)
	return o.fill(t, attrs)
}

// Decode parses a JSON document and passes it to FromPayload. Numbers are
// kept exact.
func Decode(typeName, version string, data []byte, opts ...PayloadOption) (*Model, error) {
	payload, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return FromPayload(typeName, version, payload, opts...)
}

// DecodeJSON parses a JSON document with exact numbers, rejecting trailing
// data. Codecs use it for list documents.
func DecodeJSON(data []byte) (any, error) { return decodeJSON(data) }

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.MalformedPayload("invalid JSON").WithCause(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.MalformedPayload("trailing data after JSON document")
	}
	return payload, nil
}

// ToPayload returns the JSON object for create and update bodies: the
// attributes plus type and version metadata placed by the envelope. Nested
// models carry their own metadata.
func (m *Model) ToPayload(opts ...PayloadOption) map[string]any {
	o := applyPayloadOptions(opts)
	return o.envelope.Wrap(m.typ, o.attributes(m))
}

func (o payloadOptions) attributes(m *Model) map[string]any {
	out := make(map[string]any, len(m.names))
	for _, n := range m.names {
		out[n] = o.plain(m.attrs[n])
	}
	return out
}

func (o payloadOptions) plain(v Value) any {
	switch v.kind {
	case KindList:
		items := make([]any, len(v.list))
		for i, it := range v.list {
			items[i] = o.plain(it)
		}
		return items
	case KindModel:
		return o.envelope.Wrap(v.model.typ, o.attributes(v.model))
	default:
		return v.Interface()
	}
}

// MarshalJSON encodes the payload with the default envelope.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToPayload())
}

// UnmarshalJSON decodes a payload carrying default envelope metadata.
func (m *Model) UnmarshalJSON(data []byte) error {
	decoded, err := Decode("", "", data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

func jsonKind(x any) string {
	switch x.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", x)
	}
}
