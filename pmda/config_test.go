package pmda

import (
	"testing"
	"time"

	"github.com/kbukum/pmdakit/errors"
	"github.com/kbukum/pmdakit/httpclient"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Host: "pmda.example.com"}
	cfg.ApplyDefaults()

	if cfg.Protocol != "http" {
		t.Errorf("expected protocol http, got %s", cfg.Protocol)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.BasePath != "/rest" {
		t.Errorf("expected base path /rest, got %s", cfg.BasePath)
	}
	if cfg.Wire != "xml" || cfg.FilterStyle != FilterStyleBody || cfg.FilterParam != "filter" {
		t.Errorf("unexpected wire defaults: %+v", cfg)
	}
	if cfg.PageSize != 0 {
		t.Errorf("paging must be off by default, got %d", cfg.PageSize)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, cfg.Concurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfigBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"defaults", Config{Host: "pmda01"}, "http://pmda01:8581/rest"},
		{"https", Config{Host: "pmda01", Protocol: "HTTPS", Port: 8582}, "https://pmda01:8582/rest"},
		{"ipv6", Config{Host: "::1"}, "http://[::1]:8581/rest"},
		{"trailing slash", Config{Host: "pmda01", BasePath: "/pm/rest/"}, "http://pmda01:8581/pm/rest"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			if got := tc.cfg.BaseURL(); got != tc.want {
				t.Errorf("BaseURL() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.Host = "" }},
		{"bad host", func(c *Config) { c.Host = "not a host" }},
		{"bad protocol", func(c *Config) { c.Protocol = "ftp" }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"bad wire", func(c *Config) { c.Wire = "yaml" }},
		{"bad filter style", func(c *Config) { c.FilterStyle = "header" }},
		{"negative page size", func(c *Config) { c.PageSize = -1 }},
		{"negative retry", func(c *Config) { c.Retry = -1 }},
		{"relative base path", func(c *Config) { c.BasePath = "rest" }},
		{"password without user", func(c *Config) { c.Password = "secret" }},
		{"tls over http", func(c *Config) { c.TLS = &httpclient.TLSConfig{SkipVerify: true} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Host: "pmda01"}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestConfigHTTPConfig(t *testing.T) {
	cfg := Config{Host: "pmda01", Username: "admin", Password: "pw", Timeout: 5 * time.Second}
	cfg.ApplyDefaults()

	hc := cfg.HTTPConfig()
	if hc.BaseURL != "http://pmda01:8581/rest" {
		t.Errorf("unexpected base URL %s", hc.BaseURL)
	}
	if hc.Timeout != 5*time.Second {
		t.Errorf("timeout not carried over: %v", hc.Timeout)
	}
	if hc.Auth == nil || hc.Auth.Type != httpclient.AuthBasic || hc.Auth.Username != "admin" {
		t.Errorf("expected basic auth, got %+v", hc.Auth)
	}
	if hc.Retry != nil || hc.RateLimit != nil {
		t.Error("retry and rate limiting must be off by default")
	}

	cfg.Retry = 4
	cfg.RateLimit = 10
	hc = cfg.HTTPConfig()
	if hc.Retry == nil || hc.Retry.MaxAttempts != 4 {
		t.Errorf("expected 4 attempts, got %+v", hc.Retry)
	}
	if hc.RateLimit == nil || hc.RateLimit.RequestsPerSecond != 10 {
		t.Errorf("expected 10 rps, got %+v", hc.RateLimit)
	}

	anon := Config{Host: "pmda01"}
	anon.ApplyDefaults()
	if anon.HTTPConfig().Auth != nil {
		t.Error("no credentials must mean no auth")
	}
}
