package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is not an int64 sum", m.Name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.ServiceName != "pmdakit" || cfg.Endpoint != "localhost:4318" || cfg.MetricInterval != 15*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	tc := cfg.TracerConfig()
	mc := cfg.MeterConfig()
	if tc.Endpoint != cfg.Endpoint || mc.Interval != cfg.MetricInterval {
		t.Error("derived configs must carry the shared settings")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		rate    float64
		wantErr bool
	}{
		{0, false},
		{0.5, false},
		{1, false},
		{-0.1, true},
		{1.5, true},
	}
	for _, tt := range tests {
		cfg := Config{SampleRate: tt.rate}
		if err := cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(rate=%v) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
		}
	}
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &Config{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown failed: %v", err)
	}
}

func TestInitInvalid(t *testing.T) {
	if _, err := Init(context.Background(), &Config{Enabled: true, SampleRate: 2}); err == nil {
		t.Error("expected validation error")
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("pmdactl", "1.2.3", "test")
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	v, ok := res.Set().Value(attribute.Key(AttrServiceName))
	if !ok || v.AsString() != "pmdactl" {
		t.Errorf("service.name = %v", v.AsString())
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "ParentBased"},
	}
	for _, tt := range tests {
		desc := sampler(tt.rate).Description()
		if len(desc) < len(tt.want) || desc[:len(tt.want)] != tt.want {
			t.Errorf("sampler(%v) = %q, want prefix %q", tt.rate, desc, tt.want)
		}
	}
}

func TestInitTracerAndMeter(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	}()

	cfg := &Config{Enabled: true, ServiceName: "test", Insecure: true, SampleRate: 1}
	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Nothing listens on the endpoint, so only check shutdown returns.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestStartSpan(t *testing.T) {
	exporter := installRecorder(t)
	ctx, span := StartSpan(context.Background(), "test-span")
	if SpanFromContext(ctx) != span {
		t.Error("span not stored in context")
	}
	span.End()
	if spans := exporter.GetSpans(); len(spans) != 1 || spans[0].Name != "test-span" {
		t.Errorf("unexpected spans: %v", spans)
	}
}

func TestSetSpanError(t *testing.T) {
	exporter := installRecorder(t)
	ctx, span := StartSpan(context.Background(), "test-error")
	SetSpanError(ctx, fmt.Errorf("boom"))
	SetSpanError(ctx, nil)
	span.End()

	got := exporter.GetSpans()[0]
	if got.Status.Code != codes.Error || got.Status.Description != "boom" {
		t.Errorf("unexpected status: %+v", got.Status)
	}
	if len(got.Events) != 1 {
		t.Errorf("expected one error event, got %d", len(got.Events))
	}
}

func TestSetSpanErrorNoSpan(t *testing.T) {
	SetSpanError(context.Background(), fmt.Errorf("no span error"))
}

func TestNewClientMetrics_Noop(t *testing.T) {
	m, err := NewClientMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil || m == nil {
		t.Fatalf("NewClientMetrics: %v", err)
	}
	var nilMetrics *ClientMetrics
	nilMetrics.RecordRequestStart(context.Background())
	nilMetrics.RecordRequestEnd(context.Background(), "s", "get", "ok", time.Second)
	nilMetrics.RecordResources(context.Background(), "s", 3)
	nilMetrics.RecordError(context.Background(), "s", "NOT_FOUND")
}

func TestOperation(t *testing.T) {
	exporter := installRecorder(t)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewClientMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewClientMetrics: %v", err)
	}

	ctx, op := StartOperation(context.Background(), "devices", "list", "req-1", metrics)
	op.SetAttributes(attribute.Int(AttrResultCount, 2))
	metrics.RecordResources(ctx, "devices", 2)
	op.End(ctx, nil, "")

	ctx, op = StartOperation(context.Background(), "devices", "get", "req-2", metrics)
	op.End(ctx, fmt.Errorf("missing"), "NOT_FOUND")

	spans := exporter.GetSpans()
	if len(spans) != 2 || spans[0].Name != "pmda.list" || spans[1].Name != "pmda.get" {
		t.Fatalf("unexpected spans: %v", spans)
	}
	if spans[1].Status.Code != codes.Error {
		t.Error("failed operation must mark its span as error")
	}
	if op.Duration() <= 0 {
		t.Error("expected positive duration")
	}

	got := collect(t, reader)
	if n := sumOf(t, got["pmda.client.requests"]); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
	if n := sumOf(t, got["pmda.client.requests.active"]); n != 0 {
		t.Errorf("active = %d, want 0", n)
	}
	if n := sumOf(t, got["pmda.client.resources"]); n != 2 {
		t.Errorf("resources = %d, want 2", n)
	}
	if n := sumOf(t, got["pmda.client.errors"]); n != 1 {
		t.Errorf("errors = %d, want 1", n)
	}
	if _, ok := got["pmda.client.request.duration"].Data.(metricdata.Histogram[float64]); !ok {
		t.Error("duration histogram missing")
	}
}
