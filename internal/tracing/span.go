package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// RequestSpan is the client span around one lift ride API call.
type RequestSpan struct {
	span trace.Span
}

// StartRequestSpan names the span after method and route, e.g.
// "GET /liftrides/{id}", and tags it with the logical operation.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, operation, method, route string) (context.Context, RequestSpan) {
	ctx, span := tracer.Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.template", route),
			attribute.String("skierload.operation", operation),
		),
	)
	return ctx, RequestSpan{span: span}
}

// End records the response status, when one arrived, and the outcome.
func (s RequestSpan) End(status int, err error, attrs ...attribute.KeyValue) {
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}
	s.span.SetAttributes(attrs...)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// InjectHTTPHeaders writes the W3C trace context of ctx into headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
