package pmdatest

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/pmdakit/filter"
	"github.com/kbukum/pmdakit/logger"
	"github.com/kbukum/pmdakit/model"
	"github.com/kbukum/pmdakit/wire"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// BasePath is where the fake mounts its services.
const BasePath = "/rest"

const filteredSuffix = "/filtered"

// Request is a recorded incoming request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is an in-memory data aggregator speaking the XML wire. Resources
// are held per service path; filtered lists are evaluated locally.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	services    map[string]*collection
	requests    []Request
	failures    []int
	contentType string
	log         *logger.Logger
}

type collection struct {
	order []string
	items map[string]*model.Model
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs every exchange on l.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l.WithComponent("pmdatest") }
}

// New starts a fake aggregator. Call Close when done.
func New(opts ...Option) *Server {
	s := &Server{
		services:    make(map[string]*collection),
		contentType: wire.ContentTypeXML + "; charset=UTF-8",
		log:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), s.record(), requestLogger(s.log), s.injectFailures())
	engine.Any(BasePath+"/*path", s.dispatch)

	s.Server = httptest.NewServer(engine)
	return s
}

// Host returns the listening host.
func (s *Server) Host() string {
	host, _ := s.hostPort()
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port := s.hostPort()
	return port
}

func (s *Server) hostPort() (string, int) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", 0
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return u.Host, 0
	}
	n, _ := strconv.Atoi(port)
	return host, n
}

// Seed stores models under service, assigning IDs to models without one.
// Seeding with no models just registers the service.
func (s *Server) Seed(service string, models ...*model.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collection(service)
	for _, m := range models {
		col.put(withID(m.Clone()))
	}
}

// Resource returns a copy of a stored resource.
func (s *Server) Resource(service, id string) (*model.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.services[service]
	if !ok {
		return nil, false
	}
	m, ok := col.items[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Len returns the number of resources stored under service.
func (s *Server) Len(service string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.services[service]; ok {
		return len(col.order)
	}
	return 0
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// SetContentType changes the Content-Type of successful responses, for
// exercising clients against a misconfigured aggregator.
func (s *Server) SetContentType(ct string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentType = ct
}

// FailNext answers the next n requests with status.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		s.failures = append(s.failures, status)
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		status := 0
		if len(s.failures) > 0 {
			status = s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()
		if status != 0 {
			c.Data(status, "text/plain", []byte(http.StatusText(status)))
			c.Abort()
			return
		}
		c.Next()
	}
}

// dispatch routes by method and path shape. GET on a known service lists
// it; GET on a path whose parent is a known service fetches one resource.
func (s *Server) dispatch(c *gin.Context) {
	p := strings.Trim(c.Param("path"), "/")
	if p == "" {
		c.String(http.StatusNotFound, "no service")
		return
	}

	switch c.Request.Method {
	case http.MethodGet:
		service, id := split(p)
		if s.known(p) || !s.known(service) {
			s.list(c, p, nil)
			return
		}
		s.get(c, service, id)
	case http.MethodPost:
		if service, ok := strings.CutSuffix("/"+p, filteredSuffix); ok {
			s.filtered(c, strings.TrimPrefix(service, "/"))
			return
		}
		s.create(c, p)
	case http.MethodPut:
		service, id := split(p)
		s.update(c, service, id)
	case http.MethodDelete:
		service, id := split(p)
		s.remove(c, service, id)
	default:
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) list(c *gin.Context, service string, expr filter.Expression) {
	if text := c.Query("filter"); text != "" && expr == nil {
		parsed, err := filter.Parse(text)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		expr = parsed
	}

	s.mu.Lock()
	var items []*model.Model
	if col, ok := s.services[service]; ok {
		for _, id := range col.order {
			m := col.items[id]
			if expr != nil {
				match, err := filter.Evaluate(expr, resolver(m))
				if err != nil {
					s.mu.Unlock()
					c.String(http.StatusBadRequest, err.Error())
					return
				}
				if !match {
					continue
				}
			}
			items = append(items, m.Clone())
		}
	}
	s.mu.Unlock()

	items, err := page(items, c.Query("start"), c.Query("size"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	body, err := wire.XML.MarshalList(listTag(service), items)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	s.write(c, http.StatusOK, body)
}

func (s *Server) filtered(c *gin.Context, service string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	expr, err := wire.XML.UnmarshalFilter(body)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	s.list(c, service, expr)
}

func (s *Server) get(c *gin.Context, service, id string) {
	m, ok := s.Resource(service, id)
	if !ok {
		c.String(http.StatusNotFound, "not found")
		return
	}
	s.writeModel(c, http.StatusOK, m)
}

func (s *Server) create(c *gin.Context, service string) {
	m, ok := s.readModel(c)
	if !ok {
		return
	}
	m = withID(m)

	s.mu.Lock()
	s.collection(service).put(m.Clone())
	s.mu.Unlock()

	s.writeModel(c, http.StatusCreated, m)
}

func (s *Server) update(c *gin.Context, service, id string) {
	patch, ok := s.readModel(c)
	if !ok {
		return
	}

	s.mu.Lock()
	col, found := s.services[service]
	var current *model.Model
	if found {
		current, found = col.items[id]
	}
	if !found {
		s.mu.Unlock()
		c.String(http.StatusNotFound, "not found")
		return
	}
	var err error
	patch.Range(func(name string, v model.Value) bool {
		err = current.Set(name, v)
		return err == nil
	})
	merged := current.Clone()
	s.mu.Unlock()

	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	s.writeModel(c, http.StatusOK, merged)
}

func (s *Server) remove(c *gin.Context, service, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.services[service]
	if !ok || !col.remove(id) {
		c.String(http.StatusNotFound, "not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) readModel(c *gin.Context) (*model.Model, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return nil, false
	}
	m, err := wire.XML.UnmarshalModel(body, model.Type{})
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return nil, false
	}
	return m, true
}

func (s *Server) writeModel(c *gin.Context, status int, m *model.Model) {
	body, err := wire.XML.MarshalModel(m)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	s.write(c, status, body)
}

func (s *Server) write(c *gin.Context, status int, body []byte) {
	s.mu.Lock()
	ct := s.contentType
	s.mu.Unlock()
	c.Data(status, ct, body)
}

func (s *Server) known(service string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.services[service]
	return ok
}

// collection returns the service's collection, creating it. Callers hold mu.
func (s *Server) collection(service string) *collection {
	col, ok := s.services[service]
	if !ok {
		col = &collection{items: make(map[string]*model.Model)}
		s.services[service] = col
	}
	return col
}

func (c *collection) put(m *model.Model) {
	id, _ := m.ID()
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = m
}

func (c *collection) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func withID(m *model.Model) *model.Model {
	if _, ok := m.ID(); !ok {
		_ = m.Set(model.IDAttribute, model.String(uuid.NewString()))
	}
	return m
}

func split(p string) (service, id string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

func page(items []*model.Model, start, size string) ([]*model.Model, error) {
	from := 0
	if start != "" {
		n, err := strconv.Atoi(start)
		if err != nil || n < 0 {
			return nil, strconv.ErrSyntax
		}
		from = min(n, len(items))
	}
	items = items[from:]
	if size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 0 {
			return nil, strconv.ErrSyntax
		}
		items = items[:min(n, len(items))]
	}
	return items, nil
}

// listTag names a list document after the last service segment:
// devices/manageable becomes <ManageableList>.
func listTag(service string) string {
	_, last := split(service)
	r := []rune(last)
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r) + "List"
}

// resolver exposes a resource to filter evaluation. Attributes are keyed
// by <Type>.<Attribute> for the resource's own type and every IsAlso
// facet; nested models extend the path.
func resolver(m *model.Model) filter.Resolver {
	values := make(map[string]any)
	flatten(values, m.TypeName(), m)
	for _, isa := range m.IsAlso() {
		flatten(values, isa.Name, m)
	}
	return filter.MapResolver(values)
}

func flatten(values map[string]any, prefix string, m *model.Model) {
	m.Range(func(name string, v model.Value) bool {
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if nested, ok := v.AsModel(); ok {
			flatten(values, key, nested)
			return true
		}
		values[key] = v.Interface()
		return true
	})
}
