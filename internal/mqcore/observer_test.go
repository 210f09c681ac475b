package mqcore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestOTelObserver_SpanAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	obs, err := NewOTelObserver(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)

	ctx, span := obs.Start(context.Background(), SpanOptions{
		Component: "xconsume",
		Operation: "process",
		Kind:      KindConsumer,
		Attrs:     []attribute.KeyValue{attribute.String("messaging.destination.name", "orders")},
	})
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	span.End(errors.New("handler failed"))
	span.End(nil) // 幂等

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "process", ended[0].Name())
	assert.Equal(t, trace.SpanKindConsumer, ended[0].SpanKind())
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var total int64
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != metricOperationTotal {
			continue
		}
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		for _, dp := range sum.DataPoints {
			total += dp.Value
			status, _ := dp.Attributes.Value("status")
			assert.Equal(t, "error", status.AsString())
		}
	}
	assert.Equal(t, int64(1), total)
}

func TestStartSpan_NilObserver(t *testing.T) {
	//nolint:staticcheck // nil ctx 归一化
	ctx, span := StartSpan(nil, nil, SpanOptions{Operation: "noop"})
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { span.End(nil) })
}

type nilObserver struct{}

func (nilObserver) Start(context.Context, SpanOptions) (context.Context, Span) { return nil, nil }

func TestStartSpan_GuardsNilReturns(t *testing.T) {
	ctx, span := StartSpan(context.Background(), nilObserver{}, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
}
