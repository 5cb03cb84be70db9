package pmda

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/pmdakit/errors"
	"github.com/kbukum/pmdakit/filter"
	"github.com/kbukum/pmdakit/httpclient"
	"github.com/kbukum/pmdakit/logger"
	"github.com/kbukum/pmdakit/model"
	"github.com/kbukum/pmdakit/observability"
	"github.com/kbukum/pmdakit/validation"
	"github.com/kbukum/pmdakit/version"
	"github.com/kbukum/pmdakit/wire"
)

// Client talks to the data-driven web services of one data aggregator.
// It is safe for concurrent use.
type Client struct {
	cfg       Config
	transport Transport
	codec     wire.Codec
	log       *logger.Logger
	metrics   *observability.ClientMetrics
	newID     func() string
}

// New creates a client. Unless WithTransport is given, an
// *httpclient.Adapter is built from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := wire.ByName(cfg.Wire)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:   cfg,
		codec: codec,
		log:   logger.WithComponent("pmda"),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		adapter, err := httpclient.New(cfg.HTTPConfig())
		if err != nil {
			return nil, errors.InvalidInput("pmda", err.Error()).WithCause(err)
		}
		c.transport = adapter
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Codec returns the codec used for request and response bodies.
func (c *Client) Codec() wire.Codec {
	return c.codec
}

// Close releases idle connections held by the transport.
func (c *Client) Close(ctx context.Context) error {
	if cl, ok := c.transport.(closer); ok {
		return cl.Close(ctx)
	}
	return nil
}

// Get fetches one resource: GET {service}/{id}.
func (c *Client) Get(ctx context.Context, service, id string, opts ...CallOption) (*model.Model, error) {
	if err := checkArgs(service, id); err != nil {
		return nil, err
	}
	o := c.callOptions(opts)

	var out *model.Model
	err := c.call(ctx, "get", service, id, func(ctx context.Context, op *observability.Operation) error {
		resp, err := c.roundTrip(ctx, service, id, c.request(http.MethodGet, resourcePath(service, id), o), true)
		if err != nil {
			return err
		}
		if len(resp.Body) == 0 {
			return errors.Infrastructure(fmt.Sprintf("empty response for %s/%s", service, id))
		}
		out, err = c.codec.UnmarshalModel(resp.Body, o.hint)
		if err != nil {
			return err
		}
		c.countResources(ctx, op, service, 1)
		return nil
	})
	return out, err
}

// List iterates over every resource of service: GET {service}.
func (c *Client) List(ctx context.Context, service string, opts ...CallOption) *Iterator {
	if err := checkArgs(service); err != nil {
		return failedIterator(err)
	}
	o := c.callOptions(opts)
	return newIterator(o.pageSize, func(ctx context.Context, start int) ([]*model.Model, error) {
		req := c.request(http.MethodGet, service, o)
		return c.fetchPage(ctx, "list", service, req, start, o)
	})
}

// FilteredList iterates over the resources of service matching expr.
// Depending on Config.FilterStyle the filter travels as a FilterSelect body
// (POST {service}/filtered) or as rendered text in a query parameter.
func (c *Client) FilteredList(ctx context.Context, service string, expr filter.Expression, opts ...CallOption) *Iterator {
	if err := checkArgs(service); err != nil {
		return failedIterator(err)
	}
	if expr == nil {
		return failedIterator(errors.InvalidInput("filter", "filter is required"))
	}
	o := c.callOptions(opts)

	var base httpclient.Request
	switch c.cfg.FilterStyle {
	case FilterStyleQuery:
		base = c.request(http.MethodGet, service, o)
		base.Query[c.cfg.FilterParam] = expr.Render()
	default:
		body, err := c.codec.MarshalFilter(expr)
		if err != nil {
			return failedIterator(err)
		}
		base = c.request(http.MethodPost, service+"/"+opFiltered, o)
		base.Body = body
		base.ContentType = c.codec.ContentType()
	}

	return newIterator(o.pageSize, func(ctx context.Context, start int) ([]*model.Model, error) {
		return c.fetchPage(ctx, "filtered_list", service, base, start, o)
	})
}

// Create posts a new resource: POST {service}. It returns the server's
// echo of the resource, or nil when the response has no body.
func (c *Client) Create(ctx context.Context, service string, m *model.Model, opts ...CallOption) (*model.Model, error) {
	if err := checkArgs(service); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.InvalidInput("model", "model is required")
	}
	o := c.callOptions(opts)
	if o.hint.IsZero() {
		o.hint = m.Type()
	}

	var out *model.Model
	err := c.call(ctx, "create", service, "", func(ctx context.Context, op *observability.Operation) error {
		req, err := c.modelRequest(http.MethodPost, service, m, o)
		if err != nil {
			return err
		}
		resp, err := c.roundTrip(ctx, service, "", req, true)
		if err != nil {
			return err
		}
		if len(resp.Body) == 0 {
			return nil
		}
		out, err = c.codec.UnmarshalModel(resp.Body, o.hint)
		if err != nil {
			return err
		}
		if id, ok := out.ID(); ok {
			op.SetAttributes(attribute.String(observability.AttrResourceID, id))
		}
		return nil
	})
	return out, err
}

// Update replaces the attributes carried by m: PUT {service}/{id}.
// Attributes absent from m are left untouched by the aggregator.
func (c *Client) Update(ctx context.Context, service, id string, m *model.Model, opts ...CallOption) error {
	if err := checkArgs(service, id); err != nil {
		return err
	}
	if m == nil {
		return errors.InvalidInput("model", "model is required")
	}
	o := c.callOptions(opts)

	return c.call(ctx, "update", service, id, func(ctx context.Context, _ *observability.Operation) error {
		req, err := c.modelRequest(http.MethodPut, resourcePath(service, id), m, o)
		if err != nil {
			return err
		}
		_, err = c.roundTrip(ctx, service, id, req, false)
		return err
	})
}

// Delete removes a resource: DELETE {service}/{id}.
func (c *Client) Delete(ctx context.Context, service, id string, opts ...CallOption) error {
	if err := checkArgs(service, id); err != nil {
		return err
	}
	o := c.callOptions(opts)

	return c.call(ctx, "delete", service, id, func(ctx context.Context, _ *observability.Operation) error {
		_, err := c.roundTrip(ctx, service, id, c.request(http.MethodDelete, resourcePath(service, id), o), false)
		return err
	})
}

// UpdateAll updates several resources of one service in parallel, at most
// Config.Concurrency at a time. The first failure cancels the updates that
// have not completed and is returned. Each model must not be touched by
// the caller until UpdateAll returns.
func (c *Client) UpdateAll(ctx context.Context, service string, updates map[string]*model.Model, opts ...CallOption) error {
	if err := checkArgs(service); err != nil {
		return err
	}
	ids := make([]string, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for _, id := range ids {
		m := updates[id]
		g.Go(func() error {
			if err := c.Update(ctx, service, id, m, opts...); err != nil {
				return fmt.Errorf("update %s/%s: %w", service, id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// call wraps one operation with a request ID, a span, metrics and logging.
func (c *Client) call(ctx context.Context, name, service, id string, fn func(context.Context, *observability.Operation) error) error {
	requestID := c.newID()
	ctx = logger.ContextWithRequestID(ctx, requestID)
	ctx, op := observability.StartOperation(ctx, service, name, requestID, c.metrics)
	if id != "" {
		op.SetAttributes(attribute.String(observability.AttrResourceID, id))
	}

	err := fn(ctx, op)
	code := errorCode(err)
	op.End(ctx, err, code)

	fields := logger.Fields(
		logger.FieldOperation, name,
		logger.FieldService, service,
		logger.FieldDuration, op.Duration().Milliseconds(),
	)
	if id != "" {
		fields[logger.FieldResourceID] = id
	}
	log := c.log.WithContext(ctx)
	if err != nil {
		fields[logger.FieldStatus] = code
		log.Warn("pmda request failed", logger.MergeWithError(fields, err))
		return err
	}
	log.Debug("pmda request completed", fields)
	return nil
}

// fetchPage loads one page of a list call as its own traced operation.
func (c *Client) fetchPage(ctx context.Context, name, service string, base httpclient.Request, start int, o callOptions) ([]*model.Model, error) {
	req := base
	req.Query = make(map[string]string, len(base.Query)+2)
	for k, v := range base.Query {
		req.Query[k] = v
	}
	if o.pageSize > 0 {
		req.Query[ParamStart] = strconv.Itoa(start)
		req.Query[ParamSize] = strconv.Itoa(o.pageSize)
	}

	var page []*model.Model
	err := c.call(ctx, name, service, "", func(ctx context.Context, op *observability.Operation) error {
		resp, err := c.roundTrip(ctx, service, "", req, true)
		if err != nil {
			return err
		}
		if len(resp.Body) == 0 {
			return nil
		}
		page, err = c.codec.UnmarshalList(resp.Body, o.hint)
		if err != nil {
			return err
		}
		c.countResources(ctx, op, service, len(page))
		return nil
	})
	return page, err
}

// roundTrip sends req and checks the response. When a body is expected its
// content type must match the codec.
func (c *Client) roundTrip(ctx context.Context, service, id string, req httpclient.Request, wantBody bool) (*httpclient.Response, error) {
	if requestID, ok := logger.RequestIDFromContext(ctx); ok {
		req.Headers[HeaderRequestID] = requestID
	}
	if wantBody {
		req.Headers["Accept"] = c.codec.ContentType()
	}

	c.log.WithContext(ctx).Debug("pmda request", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldPath, req.Path,
	))

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		if httpclient.IsNotFound(err) {
			return resp, errors.NotFound(service, id).WithCause(err)
		}
		return resp, err
	}
	if wantBody && len(resp.Body) > 0 && !wire.MatchContentType(c.codec.ContentType(), resp.ContentType()) {
		return resp, errors.Infrastructure(fmt.Sprintf(
			"unexpected content type %q from %s %s, expected %s",
			resp.ContentType(), req.Method, req.Path, c.codec.ContentType(),
		)).WithDetail("status", resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) request(method, path string, o callOptions) httpclient.Request {
	req := httpclient.Request{
		Method:  method,
		Path:    path,
		Headers: make(map[string]string, len(o.headers)+2),
		Query:   make(map[string]string),
	}
	req.Headers["User-Agent"] = version.UserAgent()
	for k, v := range o.headers {
		req.Headers[k] = v
	}
	return req
}

func (c *Client) modelRequest(method, path string, m *model.Model, o callOptions) (httpclient.Request, error) {
	body, err := c.codec.MarshalModel(m)
	if err != nil {
		return httpclient.Request{}, err
	}
	req := c.request(method, path, o)
	req.Body = body
	req.ContentType = c.codec.ContentType()
	return req, nil
}

func (c *Client) countResources(ctx context.Context, op *observability.Operation, service string, n int) {
	op.SetAttributes(attribute.Int(observability.AttrResultCount, n))
	c.metrics.RecordResources(ctx, service, n)
}

// checkArgs validates a service path and, for single-resource calls, the
// resource ID.
func checkArgs(service string, id ...string) error {
	v := validation.New().Service("service", service)
	for _, s := range id {
		v.ResourceID("id", s)
	}
	return v.Validate()
}

func resourcePath(service, id string) string {
	return strings.TrimRight(service, "/") + "/" + url.PathEscape(id)
}

// errorCode names an error for spans, metrics and logs.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	var he *httpclient.Error
	if stderrors.As(err, &he) {
		return "HTTP_" + strings.ToUpper(he.Code.String())
	}
	if stderrors.Is(err, context.Canceled) {
		return "CANCELED"
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "DEADLINE_EXCEEDED"
	}
	return "UNKNOWN"
}
