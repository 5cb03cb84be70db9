package wire

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kbukum/pmdakit/errors"
	"github.com/kbukum/pmdakit/filter"
	"github.com/kbukum/pmdakit/model"
)

// DefaultFilterKey is the body key holding the rendered filter text.
const DefaultFilterKey = "filter"

// JSONCodec sends JSON objects, with type and version placed by Envelope.
type JSONCodec struct {
	Envelope  model.Envelope
	FilterKey string
}

// JSON uses the default sibling envelope.
var JSON = &JSONCodec{}

// NewJSON returns a JSON codec using env for model metadata.
func NewJSON(env model.Envelope) *JSONCodec {
	return &JSONCodec{Envelope: env}
}

func (c *JSONCodec) envelope() model.Envelope {
	if c.Envelope == nil {
		return model.DefaultEnvelope
	}
	return c.Envelope
}

func (c *JSONCodec) filterKey() string {
	if c.FilterKey == "" {
		return DefaultFilterKey
	}
	return c.FilterKey
}

// ContentType implements Codec.
func (c *JSONCodec) ContentType() string { return ContentTypeJSON }

// MarshalFilter encodes {"filter": "<rendered text>"}.
func (c *JSONCodec) MarshalFilter(expr filter.Expression) ([]byte, error) {
	if expr == nil {
		return nil, errors.InvalidInput("filter", "is required")
	}
	return json.Marshal(map[string]string{c.filterKey(): expr.Render()})
}

// UnmarshalFilter reads a body produced by MarshalFilter.
func (c *JSONCodec) UnmarshalFilter(data []byte) (filter.Expression, error) {
	var body map[string]string
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, errors.MalformedPayload("invalid filter body").WithCause(err)
	}
	text, ok := body[c.filterKey()]
	if !ok {
		return nil, errors.MalformedPayload(fmt.Sprintf("filter body has no %q key", c.filterKey()))
	}
	return filter.Parse(text)
}

// MarshalModel implements Codec.
func (c *JSONCodec) MarshalModel(m *model.Model) ([]byte, error) {
	if m == nil {
		return nil, errors.InvalidInput("model", "is required")
	}
	return json.Marshal(m.ToPayload(model.WithEnvelope(c.envelope())))
}

// UnmarshalModel implements Codec. Envelope metadata wins over hint.
func (c *JSONCodec) UnmarshalModel(data []byte, hint model.Type) (*model.Model, error) {
	payload, err := model.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return c.fromPayload(payload, hint)
}

// UnmarshalList accepts a top-level array, or an object holding exactly
// one array such as {"devices": [...]}.
func (c *JSONCodec) UnmarshalList(data []byte, hint model.Type) ([]*model.Model, error) {
	payload, err := model.DecodeJSON(data)
	if err != nil {
		return nil, err
	}

	items, ok := payload.([]any)
	if !ok {
		obj, isObj := payload.(map[string]any)
		if !isObj {
			return nil, errors.MalformedPayload("list response is neither an array nor an object")
		}
		items, err = singleArray(obj)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*model.Model, 0, len(items))
	for i, item := range items {
		m, err := c.fromPayload(item, hint)
		if err != nil {
			return nil, errors.MalformedPayload(fmt.Sprintf("list item %d", i)).WithCause(err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *JSONCodec) fromPayload(payload any, hint model.Type) (*model.Model, error) {
	env := c.envelope()
	name, version := "", ""
	if obj, ok := payload.(map[string]any); ok {
		if t, _ := env.Unwrap(obj); t.Name == "" {
			name, version = hint.Name, hint.Version
		}
	}
	return model.FromPayload(name, version, payload, model.WithEnvelope(env))
}

func singleArray(obj map[string]any) ([]any, error) {
	var found []string
	var items []any
	for k, v := range obj {
		if arr, ok := v.([]any); ok {
			found = append(found, k)
			items = arr
		}
	}
	if len(found) != 1 {
		sort.Strings(found)
		return nil, errors.MalformedPayload(fmt.Sprintf("list object must hold exactly one array, found %v", found))
	}
	return items, nil
}
