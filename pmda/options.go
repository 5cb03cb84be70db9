package pmda

import (
	"github.com/kbukum/pmdakit/logger"
	"github.com/kbukum/pmdakit/model"
	"github.com/kbukum/pmdakit/observability"
	"github.com/kbukum/pmdakit/wire"
)

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport built from the configuration.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithCodec replaces the codec selected by Config.Wire.
func WithCodec(codec wire.Codec) Option {
	return func(c *Client) { c.codec = codec }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l.WithComponent("pmda") }
}

// WithMetrics records request metrics on m.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRequestIDs overrides the request ID generator.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	hint     model.Type
	headers  map[string]string
	pageSize int
}

// WithType names the type of the returned resources. The JSON wire needs
// it when payloads carry no type metadata; XML takes the type from the
// element name and only borrows the version.
func WithType(t model.Type) CallOption {
	return func(o *callOptions) { o.hint = t }
}

// WithHeader adds a request header to the call.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithPageSize overrides Config.PageSize for one list call. Zero fetches
// everything in a single request.
func WithPageSize(n int) CallOption {
	return func(o *callOptions) { o.pageSize = n }
}

func (c *Client) callOptions(opts []CallOption) callOptions {
	o := callOptions{pageSize: c.cfg.PageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
