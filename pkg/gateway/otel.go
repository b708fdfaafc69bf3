package gateway

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for gateway spans.
const tracerName = "github.com/gatewire-dev/gatewire/pkg/gateway"

// tracer returns the gateway tracer from the globally registered
// provider. Without a provider spans are no-ops, so tracing costs
// nothing unless the application opts in.
func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startDispatchSpan opens a span covering the handling of one dispatch
// frame, cache mutation included.
func startDispatchSpan(ctx context.Context, shard int, eventType string, seq int64) (context.Context, trace.Span) {
	return tracer().Start(ctx, "gateway.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.Int("gateway.shard", shard),
			attribute.String("gateway.event", eventType),
			attribute.Int64("gateway.seq", seq),
		))
}

// startConnectSpan opens a span covering one connection attempt from
// dial through handshake start.
func startConnectSpan(ctx context.Context, shard, attempt int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "gateway.connect",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("gateway.shard", shard),
			attribute.Int("gateway.attempt", attempt),
		))
}

// endSpan finishes a span, recording the error when there is one.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
