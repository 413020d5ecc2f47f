package extensions

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	honeycomb "github.com/AegisLabsOrg/Honeycomb"
)

const tracerName = "github.com/AegisLabsOrg/Honeycomb"

// Tracing wraps each container operation in an OpenTelemetry span.
type Tracing struct {
	honeycomb.BaseExtension
	tracer trace.Tracer
}

// NewTracing creates a tracing extension. A nil provider falls back to
// the global tracer provider.
func NewTracing(tp trace.TracerProvider) *Tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{
		BaseExtension: honeycomb.NewBaseExtension("tracing"),
		tracer:        tp.Tracer(tracerName),
	}
}

func (e *Tracing) Order() int {
	return 10
}

func (e *Tracing) Wrap(ctx context.Context, next func() (any, error), op *honeycomb.Operation) (any, error) {
	attrs := []attribute.KeyValue{
		attribute.String("honeycomb.op", string(op.Kind)),
		attribute.String("honeycomb.container", op.Container.ID()),
	}
	if op.Atom != nil {
		attrs = append(attrs,
			attribute.String("honeycomb.atom", honeycomb.AtomLabel(op.Atom)),
			attribute.String("honeycomb.kind", op.Atom.Kind().String()),
		)
	}
	_, span := e.tracer.Start(ctx, "honeycomb."+string(op.Kind),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	result, err := next()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}
