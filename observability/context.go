package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one client operation: a span plus request metrics.
type Operation struct {
	Service   string
	Name      string
	RequestID string
	StartTime time.Time
	Metrics   *ClientMetrics

	span trace.Span
}

// StartOperation starts a span named "pmda.<name>" and records the request
// start. metrics may be nil.
func StartOperation(ctx context.Context, service, name, requestID string, metrics *ClientMetrics) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, "pmda."+name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String(AttrPMDAService, service),
		attribute.String(AttrOperationName, name),
		attribute.String(AttrRequestID, requestID),
	)
	metrics.RecordRequestStart(ctx)
	return ctx, &Operation{
		Service:   service,
		Name:      name,
		RequestID: requestID,
		StartTime: time.Now(),
		Metrics:   metrics,
		span:      span,
	}
}

// Span returns the operation's span.
func (op *Operation) Span() trace.Span {
	return op.span
}

// SetAttributes adds attributes to the operation's span.
func (op *Operation) SetAttributes(attrs ...attribute.KeyValue) {
	op.span.SetAttributes(attrs...)
}

// End finishes the span and records request metrics. code is the error's
// machine-readable code, ignored when err is nil.
func (op *Operation) End(ctx context.Context, err error, code string) {
	status := "ok"
	if err != nil {
		status = "error"
		op.span.SetAttributes(attribute.String(AttrErrorCode, code))
		SetSpanError(trace.ContextWithSpan(ctx, op.span), err)
		op.Metrics.RecordError(ctx, op.Service, code)
	}
	op.span.End()
	op.Metrics.RecordRequestEnd(ctx, op.Service, op.Name, status, op.Duration())
}

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
