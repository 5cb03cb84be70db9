// Package observability wires OpenTelemetry tracing and metrics.
//
// Tracing and metrics export over OTLP HTTP:
//
//	tp, err := observability.InitTracer(ctx, cfg.TracerConfig())
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, cfg.MeterConfig())
//	defer mp.Shutdown(ctx)
//
// The PM DA client records one span and one request measurement per
// operation:
//
//	metrics, err := observability.NewClientMetrics(observability.Meter("pmda"))
//	ctx, op := observability.StartOperation(ctx, "devices", "list", requestID, metrics)
//	defer op.End(ctx, err, code)
package observability
