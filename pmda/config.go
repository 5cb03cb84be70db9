package pmda

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/pmdakit/httpclient"
	"github.com/kbukum/pmdakit/validation"
)

// Defaults for a stock data aggregator.
const (
	DefaultPort        = 8581
	DefaultBasePath    = "/rest"
	DefaultFilterParam = "filter"
	DefaultConcurrency = 4
)

// Filter styles.
const (
	// FilterStyleBody posts a FilterSelect document to {service}/filtered.
	FilterStyleBody = "body"
	// FilterStyleQuery sends the rendered filter as a query parameter.
	FilterStyleQuery = "query"
)

// Config describes how to reach a data aggregator.
type Config struct {
	Host        string                `yaml:"host" mapstructure:"host" validate:"required,hostname_rfc1123|ip"`
	Protocol    string                `yaml:"protocol" mapstructure:"protocol" validate:"oneof=http https"`
	Port        int                   `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	BasePath    string                `yaml:"base_path" mapstructure:"base_path"`
	Wire        string                `yaml:"wire" mapstructure:"wire" validate:"oneof=xml json"`
	FilterStyle string                `yaml:"filter_style" mapstructure:"filter_style" validate:"oneof=body query"`
	FilterParam string                `yaml:"filter_param" mapstructure:"filter_param"`
	PageSize    int                   `yaml:"page_size" mapstructure:"page_size" validate:"min=0"`
	Username    string                `yaml:"username" mapstructure:"username"`
	Password    string                `yaml:"password" mapstructure:"password"`
	Timeout     time.Duration         `yaml:"timeout" mapstructure:"timeout"`
	Retry       int                   `yaml:"retry" mapstructure:"retry" validate:"min=0"`
	RateLimit   float64               `yaml:"rate_limit" mapstructure:"rate_limit" validate:"min=0"`
	Concurrency int                   `yaml:"concurrency" mapstructure:"concurrency" validate:"min=1"`
	HTTP2       bool                  `yaml:"http2" mapstructure:"http2"`
	TLS         *httpclient.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Protocol == "" {
		c.Protocol = "http"
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Wire == "" {
		c.Wire = "xml"
	}
	if c.FilterStyle == "" {
		c.FilterStyle = FilterStyleBody
	}
	if c.FilterParam == "" {
		c.FilterParam = DefaultFilterParam
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	c.Protocol = strings.ToLower(c.Protocol)
	c.Wire = strings.ToLower(c.Wire)
}

// Validate checks the configuration. It returns an INVALID_INPUT error
// listing every offending field.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return validation.New().
		Custom(c.BasePath == "" || strings.HasPrefix(c.BasePath, "/"), "base_path", "must start with '/'").
		Custom(c.Username != "" || c.Password == "", "username", "is required when password is set").
		Custom(c.Protocol == "https" || !c.TLS.IsEnabled(), "tls", "requires protocol https").
		Validate()
}

// BaseURL returns {protocol}://{host}:{port}{base_path}.
func (c *Config) BaseURL() string {
	host := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	return fmt.Sprintf("%s://%s%s", c.Protocol, host, strings.TrimRight(c.BasePath, "/"))
}

// HTTPConfig derives the transport configuration.
func (c *Config) HTTPConfig() httpclient.Config {
	hc := httpclient.Config{
		BaseURL: c.BaseURL(),
		Timeout: c.Timeout,
		TLS:     c.TLS,
		HTTP2:   c.HTTP2,
	}
	if c.Username != "" {
		hc.Auth = httpclient.BasicAuth(c.Username, c.Password)
	}
	if c.Retry > 1 {
		hc.Retry = httpclient.DefaultRetryConfig()
		hc.Retry.MaxAttempts = c.Retry
	}
	if c.RateLimit > 0 {
		hc.RateLimit = httpclient.DefaultRateLimitConfig(c.RateLimit)
	}
	return hc
}
