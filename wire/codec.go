package wire

import (
	"mime"
	"strings"

	"github.com/kbukum/pmdakit/errors"
	"github.com/kbukum/pmdakit/filter"
	"github.com/kbukum/pmdakit/model"
)

// Content types understood by the codecs.
const (
	ContentTypeXML  = "application/xml"
	ContentTypeJSON = "application/json"
)

// Codec converts filters and models to and from one wire format.
type Codec interface {
	// ContentType is sent in Accept and Content-Type headers.
	ContentType() string
	// MarshalFilter encodes the body of a filtered list request.
	MarshalFilter(expr filter.Expression) ([]byte, error)
	// MarshalModel encodes a create or update body.
	MarshalModel(m *model.Model) ([]byte, error)
	// UnmarshalModel decodes a single resource. hint supplies the type when
	// the document does not carry one.
	UnmarshalModel(data []byte, hint model.Type) (*model.Model, error)
	// UnmarshalList decodes a list response.
	UnmarshalList(data []byte, hint model.Type) ([]*model.Model, error)
}

// ByName returns the codec for a configuration name: "xml" or "json".
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "xml":
		return XML, nil
	case "json":
		return JSON, nil
	default:
		return nil, errors.InvalidInput("wire", "unknown wire format "+name)
	}
}

// ForContentType returns the codec matching a response Content-Type.
func ForContentType(contentType string) (Codec, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, errors.Infrastructure("unparsable content type " + contentType).WithCause(err)
	}
	switch mediaType {
	case ContentTypeXML, "text/xml":
		return XML, nil
	case ContentTypeJSON:
		return JSON, nil
	default:
		return nil, errors.Infrastructure("unsupported content type " + contentType)
	}
}

// MatchContentType reports whether a response Content-Type is expected,
// ignoring case and any parameters such as charset.
func MatchContentType(expected, got string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	expected = strings.ToLower(expected)
	return got == expected || strings.HasPrefix(got, expected+";")
}
