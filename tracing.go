package inject

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/junioryono/inject"

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

// startSpan starts a span for a top-level operation on key. The zero key is
// not recorded.
func (in *Injector) startSpan(ctx context.Context, name string, key Key) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []attribute.KeyValue{attribute.String("inject.injector", in.id)}
	if !key.IsZero() {
		attrs = append(attrs, attribute.String("inject.key", key.String()))
	}

	return in.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcomeOf(err))
	}
	span.End()
}
