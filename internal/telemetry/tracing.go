package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the tutor tracer from tp, or from the global provider
// when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

// StartTurnSpan starts a span covering one tutor turn.
func StartTurnSpan(ctx context.Context, t trace.Tracer, sessionID int64, turnID string) (context.Context, trace.Span) {
	return t.Start(ctx, "tutor.turn",
		trace.WithAttributes(
			attribute.Int64("session.id", sessionID),
			attribute.String("turn.id", turnID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartNodeSpan starts a child span for a single node execution.
func StartNodeSpan(ctx context.Context, t trace.Tracer, node string) (context.Context, trace.Span) {
	return t.Start(ctx, "tutor.node."+node,
		trace.WithAttributes(attribute.String("node", node)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan completes span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
