package otel

import (
	"context"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMQHeaderRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := amqp091.Table{}
	InjectMQHeaders(ctx, headers)
	if _, ok := headers["traceparent"]; !ok {
		t.Fatalf("expected traceparent header, got %#v", headers)
	}

	out := trace.SpanContextFromContext(ExtractMQHeaders(context.Background(), headers))
	if out.TraceID() != traceID {
		t.Errorf("trace id mismatch: %s", out.TraceID())
	}
}

func TestExtractMQHeaders_Nil(t *testing.T) {
	ctx := context.Background()
	if got := ExtractMQHeaders(ctx, nil); got != ctx {
		t.Error("expected original context for nil headers")
	}
}

func TestTracerNoopWhenUninitialised(t *testing.T) {
	_, span := StartSpan(context.Background(), "x")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("expected noop span")
	}
}
