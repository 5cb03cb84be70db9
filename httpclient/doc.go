// Package httpclient provides the HTTP transport used to reach a PM Data
// Aggregator: base URL joining, default headers, authentication, TLS,
// retry with exponential backoff and a request rate limiter.
//
// Non-2xx responses come back together with a classified *Error so callers
// can branch on IsNotFound, IsAuth, IsRetryable and friends.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://da.example.com:8581/rest",
//	    Auth:    httpclient.BasicAuth("admin", "secret"),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "devices/manageable/1234",
//	})
//
// # With Resilience
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL:   "https://da.example.com:8581/rest",
//	    Retry:     httpclient.DefaultRetryConfig(),
//	    RateLimit: httpclient.DefaultRateLimitConfig(20),
//	    HTTP2:     true,
//	})
//
// 429 and 503 replies carrying Retry-After are retried after the delay the
// server asked for, capped at RetryConfig.MaxBackoff.
package httpclient
