package wire

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/beevik/etree"

	"github.com/kbukum/pmdakit/errors"
	"github.com/kbukum/pmdakit/filter"
	"github.com/kbukum/pmdakit/model"
)

const (
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	filterSchema   = "filter.xsd"
	versionAttr    = "version"
	isAlsoTag      = "IsAlso"
	isATag         = "IsA"
	filterRootTag  = "FilterSelect"
	filterTag      = "Filter"
	comparisonAttr = "type"
	ignoreCaseAttr = "ignoreCase"
)

// XMLCodec speaks the aggregator's native XML documents.
type XMLCodec struct {
	// Indent pretty-prints output with this many spaces; 0 writes compact
	// documents.
	Indent int
}

// XML is the compact XML codec.
var XML = &XMLCodec{}

// ContentType implements Codec.
func (c *XMLCodec) ContentType() string { return ContentTypeXML }

// MarshalFilter renders a FilterSelect document. Operators missing from the
// aggregator's filter schema are rewritten into equivalent supported forms.
func (c *XMLCodec) MarshalFilter(expr filter.Expression) ([]byte, error) {
	if expr == nil {
		return nil, errors.InvalidInput("filter", "is required")
	}
	doc := etree.NewDocument()
	root := doc.CreateElement(filterRootTag)
	root.CreateAttr("xmlns:xsi", xsiNamespace)
	root.CreateAttr("xsi:noNamespaceSchemaLocation", filterSchema)
	f := root.CreateElement(filterTag)
	if err := appendFilter(f, expr); err != nil {
		return nil, err
	}
	return c.write(doc)
}

func appendFilter(parent *etree.Element, expr filter.Expression) error {
	switch e := expr.(type) {
	case *filter.Comparison:
		appendComparison(parent, e)
		return nil
	case *filter.Logical:
		el := parent.CreateElement(logicalTag(e.Kind()))
		for _, child := range e.Children() {
			if err := appendFilter(el, child); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.InvalidInput("filter", fmt.Sprintf("unsupported node %T", expr))
	}
}

func logicalTag(k filter.Kind) string {
	switch k {
	case filter.KindAnd:
		return "And"
	case filter.KindOr:
		return "Or"
	default:
		return "Not"
	}
}

func appendComparison(parent *etree.Element, c *filter.Comparison) {
	switch c.Operator() {
	case filter.OpNotEqual:
		not := parent.CreateElement("Not")
		comparisonElement(not, c, "EQUAL", c.Operand().Scalar())
	case filter.OpIn:
		items := c.Operand().Items()
		if len(items) == 1 {
			comparisonElement(parent, c, "EQUAL", items[0])
			return
		}
		or := parent.CreateElement("Or")
		for _, it := range items {
			comparisonElement(or, c, "EQUAL", it)
		}
	case filter.OpLessThan:
		comparisonElement(parent, c, "LESS", c.Operand().Scalar())
	case filter.OpGreaterThan:
		comparisonElement(parent, c, "GREATER", c.Operand().Scalar())
	default:
		comparisonElement(parent, c, string(c.Operator()), c.Operand().Scalar())
	}
}

func comparisonElement(parent *etree.Element, c *filter.Comparison, op string, lit filter.Literal) {
	el := parent.CreateElement(c.Path())
	el.CreateAttr(comparisonAttr, op)
	if c.IgnoreCase() {
		el.CreateAttr(ignoreCaseAttr, "true")
	}
	el.SetText(lit.Text())
}

// UnmarshalFilter parses a FilterSelect document. Comparison values come
// back as string literals since XML carries no scalar types.
func (c *XMLCodec) UnmarshalFilter(data []byte) (filter.Expression, error) {
	doc, err := readDocument(data)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if root.Tag != filterRootTag {
		return nil, errors.MalformedPayload("expected FilterSelect, got " + root.Tag)
	}
	f := root.SelectElement(filterTag)
	if f == nil {
		return nil, errors.MalformedPayload("FilterSelect has no Filter element")
	}
	children := f.ChildElements()
	if len(children) != 1 {
		return nil, errors.MalformedPayload(fmt.Sprintf("Filter must hold exactly one expression, got %d", len(children)))
	}
	return readFilter(children[0])
}

func readFilter(el *etree.Element) (filter.Expression, error) {
	switch el.Tag {
	case "And", "Or", "Not":
		var children []filter.Expression
		for _, child := range el.ChildElements() {
			expr, err := readFilter(child)
			if err != nil {
				return nil, err
			}
			children = append(children, expr)
		}
		switch {
		case el.Tag == "Not":
			if len(children) != 1 {
				return nil, errors.InsufficientOperands("NOT", 1, len(children))
			}
			return filter.Not(children[0])
		case len(children) == 1:
			return children[0], nil
		case el.Tag == "And":
			return filter.And(children...)
		default:
			return filter.Or(children...)
		}
	default:
		op, err := filter.ParseOperator(el.SelectAttrValue(comparisonAttr, ""))
		if err != nil {
			return nil, err
		}
		var opts []filter.CompareOption
		if strings.EqualFold(el.SelectAttrValue(ignoreCaseAttr, ""), "true") {
			opts = append(opts, filter.IgnoreCase())
		}
		text := strings.TrimSpace(el.Text())
		if op.TakesList() {
			return filter.Compare(el.Tag, op, []string{text}, opts...)
		}
		return filter.Compare(el.Tag, op, text, opts...)
	}
}

// MarshalModel encodes a model as a document rooted at its type name.
func (c *XMLCodec) MarshalModel(m *model.Model) ([]byte, error) {
	if m == nil {
		return nil, errors.InvalidInput("model", "is required")
	}
	doc := etree.NewDocument()
	if err := appendModel(&doc.Element, m.TypeName(), m); err != nil {
		return nil, err
	}
	return c.write(doc)
}

// checkName rejects names that are not usable as unprefixed XML element
// names, so no document is sent that the codec could not read back.
func checkName(name string) error {
	if name == "" {
		return errors.InvalidInput("name", "element name is required")
	}
	for i, r := range name {
		ok := unicode.IsLetter(r) || r == '_'
		if i > 0 {
			ok = ok || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '-' || r == '.'
		}
		if !ok {
			return errors.InvalidInput(name, fmt.Sprintf("%q is not a valid XML element name", name))
		}
	}
	return nil
}

// MarshalList encodes models as children of a root element named tag,
// the shape of list responses such as <DeviceList>.
func (c *XMLCodec) MarshalList(tag string, models []*model.Model) ([]byte, error) {
	if err := checkName(tag); err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	root := doc.CreateElement(tag)
	for _, m := range models {
		if err := appendModel(root, m.TypeName(), m); err != nil {
			return nil, err
		}
	}
	return c.write(doc)
}

func appendModel(parent *etree.Element, tag string, m *model.Model) error {
	if err := checkName(tag); err != nil {
		return err
	}
	if m.TypeName() != "" && m.TypeName() != tag {
		return errors.InvalidInput(tag, fmt.Sprintf("model of type %s cannot be stored under %s", m.TypeName(), tag))
	}
	el := parent.CreateElement(tag)
	if m.Version() != "" {
		el.CreateAttr(versionAttr, m.Version())
	}
	var err error
	m.Range(func(name string, v model.Value) bool {
		err = appendValue(el, name, v)
		return err == nil
	})
	if err != nil {
		return err
	}
	if isAlso := m.IsAlso(); len(isAlso) > 0 {
		list := el.CreateElement(isAlsoTag)
		for _, isa := range isAlso {
			entry := list.CreateElement(isATag)
			entry.CreateAttr("name", isa.Name)
			entry.CreateAttr("rootURL", isa.RootURL)
		}
	}
	return nil
}

// appendValue writes one attribute. Lists are written as repeated
// elements, so the XML wire cannot carry an empty list (rejected; use
// Null to clear) and a one-item list reads back as a plain scalar.
func appendValue(parent *etree.Element, name string, v model.Value) error {
	if err := checkName(name); err != nil {
		return err
	}
	switch v.Kind() {
	case model.KindModel:
		nested, _ := v.AsModel()
		return appendModel(parent, name, nested)
	case model.KindList:
		items, _ := v.AsList()
		if len(items) == 0 {
			return errors.InvalidInput(name, "empty lists cannot be encoded as XML, use null to clear")
		}
		for _, it := range items {
			if it.Kind() == model.KindList {
				return errors.InvalidInput(name, "nested lists cannot be encoded as XML")
			}
			if err := appendValue(parent, name, it); err != nil {
				return err
			}
		}
		return nil
	case model.KindNull:
		el := parent.CreateElement(name)
		el.CreateAttr("xmlns:xsi", xsiNamespace)
		el.CreateAttr("xsi:nil", "true")
		return nil
	default:
		parent.CreateElement(name).SetText(v.Text())
		return nil
	}
}

// UnmarshalModel decodes a resource document. Scalars are read back as
// strings, as the server sends them; an element with a version attribute or
// child elements becomes a nested model and repeated elements become a list.
func (c *XMLCodec) UnmarshalModel(data []byte, hint model.Type) (*model.Model, error) {
	doc, err := readDocument(data)
	if err != nil {
		return nil, err
	}
	m, err := readModel(doc.Root())
	if err != nil {
		return nil, err
	}
	if m.Version() == "" {
		m.SetVersion(hint.Version)
	}
	return m, nil
}

// UnmarshalList decodes a list document such as <DeviceList>: each child of
// the root is one resource.
func (c *XMLCodec) UnmarshalList(data []byte, hint model.Type) ([]*model.Model, error) {
	doc, err := readDocument(data)
	if err != nil {
		return nil, err
	}
	children := doc.Root().ChildElements()
	out := make([]*model.Model, 0, len(children))
	for _, child := range children {
		m, err := readModel(child)
		if err != nil {
			return nil, err
		}
		if m.Version() == "" {
			m.SetVersion(hint.Version)
		}
		out = append(out, m)
	}
	return out, nil
}

func readModel(el *etree.Element) (*model.Model, error) {
	m := model.New(model.Type{Name: el.Tag, Version: el.SelectAttrValue(versionAttr, "")})

	counts := make(map[string]int)
	for _, child := range el.ChildElements() {
		counts[child.Tag]++
	}

	for _, child := range el.ChildElements() {
		if child.Tag == isAlsoTag && child.SelectAttr(versionAttr) == nil {
			m.SetIsAlso(readIsAlso(child)...)
			continue
		}
		v, err := readValue(child)
		if err != nil {
			return nil, err
		}
		if counts[child.Tag] > 1 {
			prev, _ := m.Lookup(child.Tag)
			items, _ := prev.AsList()
			v = model.List(append(items, v)...)
		}
		if err := m.Set(child.Tag, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func readValue(el *etree.Element) (model.Value, error) {
	if strings.EqualFold(el.SelectAttrValue("xsi:nil", ""), "true") {
		return model.Null(), nil
	}
	if el.SelectAttr(versionAttr) != nil || len(el.ChildElements()) > 0 {
		nested, err := readModel(el)
		if err != nil {
			return model.Value{}, err
		}
		return model.Nested(nested), nil
	}
	return model.String(strings.TrimSpace(el.Text())), nil
}

func readIsAlso(el *etree.Element) []model.IsA {
	var out []model.IsA
	for _, entry := range el.SelectElements(isATag) {
		out = append(out, model.IsA{
			Name:    entry.SelectAttrValue("name", ""),
			RootURL: entry.SelectAttrValue("rootURL", ""),
		})
	}
	return out
}

func readDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.MalformedPayload("invalid XML").WithCause(err)
	}
	if doc.Root() == nil {
		return nil, errors.MalformedPayload("XML document has no root element")
	}
	return doc, nil
}

func (c *XMLCodec) write(doc *etree.Document) ([]byte, error) {
	if c.Indent > 0 {
		doc.Indent(c.Indent)
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Internal(err)
	}
	return out, nil
}

// DumpModel returns an indented XML rendering of m for debugging.
func DumpModel(m *model.Model) string {
	out, err := (&XMLCodec{Indent: 2}).MarshalModel(m)
	if err != nil {
		return m.String()
	}
	return string(out)
}
