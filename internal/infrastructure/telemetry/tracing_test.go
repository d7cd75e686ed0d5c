package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fbstrack/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans swaps the global tracer provider for one backed by an
// in-memory recorder and restores it when the test ends.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attrMap(spans []sdktrace.ReadOnlySpan, t *testing.T) map[string]interface{} {
	t.Helper()
	require.Len(t, spans, 1)

	m := make(map[string]interface{})
	for _, attr := range spans[0].Attributes() {
		m[string(attr.Key)] = attr.Value.AsInterface()
	}
	return m
}

func TestStartSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "sync.run",
		telemetry.WithAttribute(telemetry.SpanAttrMarketplace, "wb"),
	)
	require.NotNil(t, span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "sync.run", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, "wb", attrMap(spans, t)[telemetry.SpanAttrMarketplace])
}

func TestStartSpan_ClientKind(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "marketplace.fetch",
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
}

func TestStartServiceSpan_NamingConvention(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "sync", "reconcile")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "sync.reconcile", spans[0].Name())
}

func TestSetAttributes(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "sync.reconcile")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderNumber, "WB-0012345",
		telemetry.SpanAttrSnapshots, 17,
		"order_created", true,
	)
	span.End()

	attrs := attrMap(sr.Ended(), t)
	assert.Equal(t, "WB-0012345", attrs[telemetry.SpanAttrOrderNumber])
	assert.Equal(t, int64(17), attrs[telemetry.SpanAttrSnapshots])
	assert.Equal(t, true, attrs["order_created"])
}

func TestSetAttribute_StringerValue(t *testing.T) {
	sr := recordSpans(t)
	runID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "sync.run")
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, runID)
	span.End()

	// uuid.UUID reaches the span through its Stringer form.
	attrs := attrMap(sr.Ended(), t)
	assert.Equal(t, runID.String(), attrs[telemetry.SpanAttrRunID])
}

func TestRecordError(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "sync.fetch")
	telemetry.RecordError(span, errors.New("wb api returned 429"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "wb api returned 429", spans[0].Status().Description)

	events := spans[0].Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "exception", events[0].Name)
}

func TestRecordError_NilErrorLeavesStatus(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "sync.fetch")
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSetOK(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "sync.run")
	telemetry.SetOK(span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "sync.run")
	telemetry.AddEvent(span, "sync_skipped",
		"reason", "lock held",
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "sync_skipped", events[0].Name)

	var reason string
	for _, attr := range events[0].Attributes {
		if attr.Key == "reason" {
			reason = attr.Value.AsString()
		}
	}
	assert.Equal(t, "lock held", reason)
}

func TestNilSpanHelpersDoNotPanic(t *testing.T) {
	telemetry.RecordError(nil, errors.New("boom"))
	telemetry.SetAttributes(nil, "key", "value")
	telemetry.SetAttribute(nil, "key", "value")
	telemetry.SetOK(nil)
	telemetry.AddEvent(nil, "event", "key", "value")
}

func TestSpanFromContext(t *testing.T) {
	recordSpans(t)
	ctx := context.Background()

	// Empty context hands back a usable no-op span.
	require.NotNil(t, telemetry.SpanFromContext(ctx))

	ctx, span := telemetry.StartSpan(ctx, "sync.run")
	defer span.End()

	got := telemetry.SpanFromContext(ctx)
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanContext().SpanID())
}

func TestGetTraceAndSpanID(t *testing.T) {
	recordSpans(t)
	ctx := context.Background()

	assert.Empty(t, telemetry.GetTraceID(ctx))
	assert.Empty(t, telemetry.GetSpanID(ctx))

	ctx, span := telemetry.StartSpan(ctx, "sync.run")
	defer span.End()

	assert.Len(t, telemetry.GetTraceID(ctx), 32)
	assert.Len(t, telemetry.GetSpanID(ctx), 16)
}

func TestContextWithSpan(t *testing.T) {
	recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "sync.run")
	defer span.End()

	ctx := telemetry.ContextWithSpan(context.Background(), span)
	got := telemetry.SpanFromContext(ctx)
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanContext().SpanID())
}

func TestNestedSpansShareTrace(t *testing.T) {
	sr := recordSpans(t)
	ctx := context.Background()

	ctx, parent := telemetry.StartSpan(ctx, "sync.run")
	_, child := telemetry.StartSpan(ctx, "sync.fetch")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	byName := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range spans {
		byName[s.Name()] = s
	}
	require.Contains(t, byName, "sync.run")
	require.Contains(t, byName, "sync.fetch")

	assert.Equal(t, byName["sync.run"].SpanContext().TraceID(), byName["sync.fetch"].SpanContext().TraceID())
	assert.Equal(t, byName["sync.run"].SpanContext().SpanID(), byName["sync.fetch"].Parent().SpanID())
}

func TestSetAttributes_MalformedPairs(t *testing.T) {
	tests := []struct {
		name  string
		kvs   []interface{}
		count int
	}{
		{"trailing key without value", []interface{}{"marketplace", "ozon", "orphan"}, 1},
		{"non-string key skipped", []interface{}{"marketplace", "ozon", 7, "seven"}, 1},
		{"mixed value types", []interface{}{"pages", 3, "partial", false, "statuses", []string{"new", "shipped"}}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := recordSpans(t)

			_, span := telemetry.StartSpan(context.Background(), "sync.fetch")
			telemetry.SetAttributes(span, tt.kvs...)
			span.End()

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Len(t, spans[0].Attributes(), tt.count)
		})
	}
}
