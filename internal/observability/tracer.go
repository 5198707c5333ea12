package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new internal span with the given name and attributes
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartClientSpan creates a span for an outbound call to a backend
func StartClientSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError marks the span as errored
func SetSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks the span as successful
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

var (
	AttrFunctionName = attribute.Key("faasr.function.name")
	AttrServerName   = attribute.Key("faasr.server.name")
	AttrBackend      = attribute.Key("faasr.backend")
	AttrDispatchID   = attribute.Key("faasr.dispatch_id")
	AttrPayloadMode  = attribute.Key("faasr.payload.mode")
	AttrStatusCode   = attribute.Key("faasr.status_code")
	AttrErrorKind    = attribute.Key("faasr.error.kind")
)
