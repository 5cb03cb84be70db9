package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrorCode classifies transport failures.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, reset).
	ErrCodeConnection
	// ErrCodeAuth indicates rejected credentials (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates an unknown resource or service (404).
	ErrCodeNotFound
	// ErrCodeConflict indicates the aggregator refused a write (409).
	ErrCodeConflict
	// ErrCodeRateLimit indicates throttling (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a request the aggregator rejected as
	// malformed, or one that could not be built at all.
	ErrCodeValidation
	// ErrCodeServer indicates a server-side failure (5xx).
	ErrCodeServer
)

var codeNames = map[ErrorCode]string{
	ErrCodeTimeout:    "timeout",
	ErrCodeConnection: "connection",
	ErrCodeAuth:       "auth",
	ErrCodeNotFound:   "not_found",
	ErrCodeConflict:   "conflict",
	ErrCodeRateLimit:  "rate_limit",
	ErrCodeValidation: "validation",
	ErrCodeServer:     "server",
}

// String returns the code name used in logs and metrics.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// maxExcerpt bounds how much of an error body ends up in Error().
const maxExcerpt = 120

// Error is a classified transport failure.
type Error struct {
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	// Body is the raw error document returned by the aggregator, if any.
	Body []byte
	Err  error
	// RetryAfter is the delay the server asked for on 429 and 503.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("httpclient: ")
	b.WriteString(e.Code.String())
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if excerpt := bodyExcerpt(e.Body); excerpt != "" {
		b.WriteString(": ")
		b.WriteString(excerpt)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// bodyExcerpt flattens an error document to one short line.
func bodyExcerpt(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) <= maxExcerpt {
		return s
	}
	cut := maxExcerpt
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// NewTimeoutError wraps a deadline or client timeout.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError wraps a dial, TLS or read failure.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError reports a request that could not be built or sent.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// NewAuthError reports rejected or unavailable credentials. A zero status
// means the credentials could not be attached at all.
func NewAuthError(statusCode int, body []byte) *Error {
	return newStatusError(statusCode, ErrCodeAuth, false, body)
}

// NewNotFoundError reports a 404.
func NewNotFoundError(body []byte) *Error {
	return newStatusError(http.StatusNotFound, ErrCodeNotFound, false, body)
}

// NewServerError reports a 5xx.
func NewServerError(statusCode int, body []byte) *Error {
	return newStatusError(statusCode, ErrCodeServer, true, body)
}

func newStatusError(status int, code ErrorCode, retryable bool, body []byte) *Error {
	msg := code.String()
	if status > 0 {
		msg = http.StatusText(status)
	}
	return &Error{StatusCode: status, Code: code, Message: msg, Retryable: retryable, Body: body}
}

// statusRule maps one status or a range of statuses to a classification.
// Rules are checked in order.
type statusRule struct {
	lo, hi    int
	code      ErrorCode
	retryable bool
}

var statusRules = []statusRule{
	{401, 401, ErrCodeAuth, false},
	{403, 403, ErrCodeAuth, false},
	{404, 404, ErrCodeNotFound, false},
	{409, 409, ErrCodeConflict, false},
	{429, 429, ErrCodeRateLimit, true},
	{400, 499, ErrCodeValidation, false},
	{500, 599, ErrCodeServer, true},
}

// ClassifyStatusCode converts a response status into a typed error, or nil
// for 2xx. Statuses outside every rule (1xx, 3xx) are non-retryable server
// errors since the adapter follows redirects itself.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	for _, r := range statusRules {
		if statusCode >= r.lo && statusCode <= r.hi {
			return newStatusError(statusCode, r.code, r.retryable, body)
		}
	}
	return newStatusError(statusCode, ErrCodeServer, false, body)
}

// classifyResponse classifies a response and records its Retry-After delay
// on 429 and 503 replies.
func classifyResponse(resp *http.Response, body []byte, now time.Time) *Error {
	e := ClassifyStatusCode(resp.StatusCode, body)
	if e == nil {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), now)
	}
	return e
}

// parseRetryAfter reads a Retry-After value given either as delay seconds
// or as an HTTP date. Unparseable or past values yield zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// AsError returns the classified error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func hasCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsTimeout reports a timeout anywhere in err's chain.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsConnection reports a connection failure.
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsAuth reports rejected credentials.
func IsAuth(err error) bool { return hasCode(err, ErrCodeAuth) }

// IsNotFound reports a 404.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsConflict reports a 409.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// IsRateLimit reports a 429.
func IsRateLimit(err error) bool { return hasCode(err, ErrCodeRateLimit) }

// IsServerError reports a 5xx.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsRetryable reports whether the retry loop may try again.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable
}
