package mqcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func sampledContext() (context.Context, trace.SpanContext) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0xa, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc), sc
}

func TestOTelTracer_RoundTrip(t *testing.T) {
	tracer := NewOTelTracer()
	ctx, sc := sampledContext()

	member, err := baggage.NewMember("tenant", "t1")
	require.NoError(t, err)
	bag, err := baggage.New(member)
	require.NoError(t, err)
	ctx = baggage.ContextWithBaggage(ctx, bag)

	headers := map[string]string{}
	tracer.Inject(ctx, headers)
	require.Contains(t, headers, "traceparent")
	assert.Contains(t, headers, "baggage")

	extracted := tracer.Extract(headers)
	got := trace.SpanContextFromContext(extracted)
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
	assert.True(t, got.IsRemote())
	assert.Equal(t, "t1", baggage.FromContext(extracted).Member("tenant").Value())
}

func TestOTelTracer_EmptyInputs(t *testing.T) {
	tracer := NewOTelTracer(WithOTelPropagator(nil))
	assert.NotPanics(t, func() { tracer.Inject(context.Background(), nil) })

	headers := map[string]string{}
	tracer.Inject(context.Background(), headers)
	assert.Empty(t, headers)

	assert.False(t, trace.SpanContextFromContext(tracer.Extract(nil)).IsValid())
}

func TestOTelTracer_CustomPropagator(t *testing.T) {
	tracer := NewOTelTracer(WithOTelPropagator(propagation.TraceContext{}))
	ctx, _ := sampledContext()
	headers := map[string]string{}
	tracer.Inject(ctx, headers)
	assert.NotContains(t, headers, "baggage")
}

func TestNoopTracer(t *testing.T) {
	var tracer Tracer = NoopTracer{}
	headers := map[string]string{}
	tracer.Inject(context.Background(), headers)
	assert.Empty(t, headers)
	assert.NotNil(t, tracer.Extract(headers))
}

func TestMergeTraceContext(t *testing.T) {
	extracted, sc := sampledContext()

	base, cancel := context.WithCancel(context.Background())
	merged := MergeTraceContext(base, extracted)
	assert.Equal(t, sc.TraceID(), trace.SpanContextFromContext(merged).TraceID())

	cancel()
	assert.ErrorIs(t, merged.Err(), context.Canceled, "base cancellation must propagate")

	//nolint:staticcheck // nil ctx 归一化
	assert.NotNil(t, MergeTraceContext(nil, nil))
	plain := context.Background()
	assert.Equal(t, plain, MergeTraceContext(plain, context.Background()))
}
