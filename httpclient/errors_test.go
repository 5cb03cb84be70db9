package httpclient

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			"status without body",
			NewNotFoundError(nil),
			"httpclient: not_found (HTTP 404): Not Found",
		},
		{
			"connection",
			NewConnectionError(fmt.Errorf("connection refused")),
			"httpclient: connection: connection refused",
		},
		{
			"aggregator error document",
			ClassifyStatusCode(http.StatusBadRequest, []byte("<Error>\n  <Message>bad  filter</Message>\n</Error>")),
			"httpclient: validation (HTTP 400): Bad Request: <Error> <Message>bad filter</Message> </Error>",
		},
		{
			"unknown code",
			&Error{Code: ErrorCode(99), Message: "odd"},
			"httpclient: unknown: odd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_LongBodyIsTruncated(t *testing.T) {
	e := NewServerError(http.StatusInternalServerError, []byte(strings.Repeat("é", 200)))
	msg := e.Error()
	if !strings.HasSuffix(msg, "...") {
		t.Fatalf("expected a truncated excerpt, got %q", msg)
	}
	if len(msg) > 200 {
		t.Errorf("excerpt too long: %d bytes", len(msg))
	}
	if strings.ContainsRune(msg, '�') {
		t.Error("excerpt must not split a rune")
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("dial tcp: refused")
	e := NewConnectionError(inner)
	if e.Unwrap() != inner {
		t.Error("Unwrap did not return the cause")
	}
	wrapped := fmt.Errorf("get devices/1: %w", e)
	if got, ok := AsError(wrapped); !ok || got != e {
		t.Error("AsError must find the classified error through wrapping")
	}
	if _, ok := AsError(inner); ok {
		t.Error("AsError must not match a plain error")
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		code    int
		wantNil bool
		errCode ErrorCode
		retry   bool
	}{
		{200, true, 0, false},
		{201, true, 0, false},
		{204, true, 0, false},
		{304, false, ErrCodeServer, false},
		{400, false, ErrCodeValidation, false},
		{401, false, ErrCodeAuth, false},
		{403, false, ErrCodeAuth, false},
		{404, false, ErrCodeNotFound, false},
		{409, false, ErrCodeConflict, false},
		{415, false, ErrCodeValidation, false},
		{429, false, ErrCodeRateLimit, true},
		{500, false, ErrCodeServer, true},
		{502, false, ErrCodeServer, true},
		{503, false, ErrCodeServer, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			e := ClassifyStatusCode(tt.code, nil)
			if tt.wantNil {
				if e != nil {
					t.Errorf("expected nil, got %v", e)
				}
				return
			}
			if e == nil {
				t.Fatal("expected an error")
			}
			if e.Code != tt.errCode || e.StatusCode != tt.code {
				t.Errorf("got code %v status %d, want %v %d", e.Code, e.StatusCode, tt.errCode, tt.code)
			}
			if e.Retryable != tt.retry {
				t.Errorf("retryable = %v, want %v", e.Retryable, tt.retry)
			}
		})
	}
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		is        func(error) bool
		retryable bool
	}{
		{"timeout", NewTimeoutError(fmt.Errorf("timed out")), IsTimeout, true},
		{"connection", NewConnectionError(fmt.Errorf("refused")), IsConnection, true},
		{"auth", NewAuthError(http.StatusUnauthorized, nil), IsAuth, false},
		{"not found", NewNotFoundError(nil), IsNotFound, false},
		{"conflict", ClassifyStatusCode(http.StatusConflict, nil), IsConflict, false},
		{"rate limit", ClassifyStatusCode(http.StatusTooManyRequests, nil), IsRateLimit, true},
		{"server", NewServerError(http.StatusBadGateway, nil), IsServerError, true},
		{"validation", NewValidationError("bad"), func(err error) bool { return hasCode(err, ErrCodeValidation) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("pmda: %w", tt.err)
			if !tt.is(wrapped) {
				t.Errorf("helper does not match %v", tt.err)
			}
			if IsRetryable(wrapped) != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", !tt.retryable, tt.retryable)
			}
		})
	}
	if IsNotFound(fmt.Errorf("plain")) || IsRetryable(nil) {
		t.Error("helpers must not match unclassified errors")
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{" 10 ", 10 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := parseRetryAfter(tt.value, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestClassifyResponse_RetryAfter(t *testing.T) {
	now := time.Now()
	tests := []struct {
		status int
		want   time.Duration
	}{
		{http.StatusTooManyRequests, 2 * time.Second},
		{http.StatusServiceUnavailable, 2 * time.Second},
		{http.StatusInternalServerError, 0},
	}
	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.status, Header: http.Header{"Retry-After": []string{"2"}}}
		e := classifyResponse(resp, nil, now)
		if e == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if e.RetryAfter != tt.want {
			t.Errorf("status %d: RetryAfter = %v, want %v", tt.status, e.RetryAfter, tt.want)
		}
	}
	if e := classifyResponse(&http.Response{StatusCode: 200, Header: http.Header{}}, nil, now); e != nil {
		t.Errorf("2xx must not be classified as error: %v", e)
	}
}
