package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/pmdakit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.WithComponent("observability").Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// ClientMetrics holds the instruments recorded by the PM DA client.
type ClientMetrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	resourceTotal   metric.Int64Counter
	errorTotal      metric.Int64Counter
}

// NewClientMetrics creates the client instruments on the given meter.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	requestTotal, err := meter.Int64Counter("pmda.client.requests",
		metric.WithDescription("Requests sent to the data aggregator"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pmda.client.requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("pmda.client.request.duration",
		metric.WithDescription("Duration of data aggregator requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pmda.client.request.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("pmda.client.requests.active",
		metric.WithDescription("Requests currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pmda.client.requests.active counter: %w", err)
	}

	resourceTotal, err := meter.Int64Counter("pmda.client.resources",
		metric.WithDescription("Resources decoded from responses"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pmda.client.resources counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("pmda.client.errors",
		metric.WithDescription("Failed operations by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pmda.client.errors counter: %w", err)
	}

	return &ClientMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
		resourceTotal:   resourceTotal,
		errorTotal:      errorTotal,
	}, nil
}

// RecordRequestStart increments the in-flight request count.
func (m *ClientMetrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the completed
// request.
func (m *ClientMetrics) RecordRequestEnd(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPMDAService, service),
		attribute.String(AttrOperationName, operation),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrPMDAService, service),
		attribute.String(AttrOperationName, operation),
	))
}

// RecordResources counts decoded resources.
func (m *ClientMetrics) RecordResources(ctx context.Context, service string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.resourceTotal.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String(AttrPMDAService, service),
	))
}

// RecordError counts a failed operation by error code.
func (m *ClientMetrics) RecordError(ctx context.Context, service, code string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPMDAService, service),
		attribute.String(AttrErrorCode, code),
	))
}
