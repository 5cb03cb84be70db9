package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func jsonLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: level, Format: "json"}, "pmdactl", &buf)
	return l, &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("log line is not JSON: %q", buf.String())
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNew_JSONFields(t *testing.T) {
	l, buf := jsonLogger("debug")
	l.WithComponent("pmda").Info("request sent", Fields(FieldMethod, "GET", FieldPath, "devices/1"))

	entry := lastEntry(t, buf)
	if entry["message"] != "request sent" || entry["level"] != "info" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry[FieldComponent] != "pmda" || entry[FieldService] != "pmdactl" {
		t.Errorf("missing component/service: %v", entry)
	}
	if entry[FieldMethod] != "GET" || entry[FieldPath] != "devices/1" {
		t.Errorf("missing fields: %v", entry)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	l, buf := jsonLogger("warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if lastEntry(t, buf)["message"] != "shown" {
		t.Error("warn message not written")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l, buf := jsonLogger("invalid-level")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("invalid level should fall back to info, got %q", buf.String())
	}
}

func TestWithContext(t *testing.T) {
	l, buf := jsonLogger("info")
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = ContextWithRequestID(ctx, "req-1")

	l.WithContext(ctx).Info("with context")
	entry := lastEntry(t, buf)
	if entry[FieldTraceID] != traceID.String() || entry[FieldSpanID] != spanID.String() {
		t.Errorf("trace fields missing: %v", entry)
	}
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("request id missing: %v", entry)
	}

	buf.Reset()
	l.WithContext(context.Background()).Info("bare")
	if _, ok := lastEntry(t, buf)[FieldTraceID]; ok {
		t.Error("no trace fields expected without a span")
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Error("expected no request id")
	}
	if _, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "")); ok {
		t.Error("empty request id must be ignored")
	}
	if id, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "abc")); !ok || id != "abc" {
		t.Errorf("got %q, %v", id, ok)
	}
}

func TestWithError(t *testing.T) {
	l, buf := jsonLogger("info")
	l.WithError(errors.New("boom")).Error("failed")
	if lastEntry(t, buf)["error"] != "boom" {
		t.Errorf("error field missing: %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	l, buf := jsonLogger("info")
	l.WithFields(map[string]interface{}{FieldService: "devices/manageable"}).Info("x")
	if lastEntry(t, buf)[FieldService] != "devices/manageable" {
		t.Errorf("field missing: %q", buf.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "pmdactl", &buf)
	l.Warn("careful")
	out := buf.String()
	if !strings.Contains(out, "[PMD][WRN]") || !strings.Contains(out, "careful") {
		t.Errorf("unexpected console output: %q", out)
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("discarded")
	l.WithComponent("x").Info("discarded")
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	l, buf := jsonLogger("debug")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Fatal("expected SetGlobalLogger to set the global logger")
	}
	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	WithComponent("cli").Info("tagged")
	WithContext(ContextWithRequestID(context.Background(), "r")).Info("ctx")
	if n := strings.Count(buf.String(), "\n"); n != 6 {
		t.Errorf("expected 6 entries, got %d: %s", n, buf.String())
	}
}

func TestInit(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	cfg := Config{Level: "error", Format: "json"}
	Init(&cfg)
	if cfg.Output != "stderr" || !cfg.Timestamp {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if GetGlobalLogger() == prev {
		t.Error("expected Init to replace the global logger")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: "json", Output: "stdout"}, false},
		{"pretty", Config{Level: "warn", Format: "pretty", Output: "stderr"}, false},
		{"bad level", Config{Level: "loud", Format: "json", Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: "json", Output: "/var/log/x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "skipped", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields: %v", m)
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("update", errors.New("boom"))
	if m[FieldOperation] != "update" || m[FieldError] != "boom" {
		t.Errorf("unexpected fields: %v", m)
	}
}

func TestDurationFields(t *testing.T) {
	m := DurationFields("list", 1500*time.Millisecond)
	if m[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration: %v", m[FieldDuration])
	}
}

func TestMergeWithError(t *testing.T) {
	m := MergeWithError(nil, errors.New("boom"))
	if m[FieldError] != "boom" {
		t.Errorf("unexpected fields: %v", m)
	}
	m = MergeWithError(Fields("x", 1), errors.New("e"))
	if m["x"] != 1 || m[FieldError] != "e" {
		t.Errorf("existing fields lost: %v", m)
	}
}
