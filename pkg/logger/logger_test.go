package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

// logLine logs one message through WithContext and returns the decoded line.
func logLine(t *testing.T, ctx context.Context) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	l := NewWithWriter("catalog", "info", &buf)

	WithContext(ctx, l).Info("line")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func withSpan(ctx context.Context, traceHex, spanHex string) context.Context {
	traceID, _ := trace.TraceIDFromHex(traceHex)
	spanID, _ := trace.SpanIDFromHex(spanHex)
	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
}

func TestNew_ServiceAttr(t *testing.T) {
	out := logLine(t, context.Background())
	assert.Equal(t, "catalog", out["service"])
	assert.Equal(t, "line", out["msg"])
}

func TestWithContext_Empty(t *testing.T) {
	out := logLine(t, context.Background())
	for _, key := range []string{"correlation_id", "operation", "trace_id", "span_id"} {
		assert.NotContains(t, out, key)
	}
}

func TestWithContext_CorrelationID(t *testing.T) {
	out := logLine(t, WithCorrelationID(context.Background(), "req-123"))
	assert.Equal(t, "req-123", out["correlation_id"])
}

func TestWithContext_Operation(t *testing.T) {
	out := logLine(t, WithOperation(context.Background(), "product.update"))
	assert.Equal(t, "product.update", out["operation"])
}

func TestWithContext_Span(t *testing.T) {
	ctx := withSpan(context.Background(), "4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")

	out := logLine(t, ctx)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", out["span_id"])
}

func TestWithContext_AllFields(t *testing.T) {
	ctx := withSpan(context.Background(), "abcdef1234567890abcdef1234567890", "1234567890abcdef")
	ctx = WithCorrelationID(ctx, "corr-all")
	ctx = WithOperation(ctx, "index.rebuild")

	out := logLine(t, ctx)

	assert.Equal(t, "corr-all", out["correlation_id"])
	assert.Equal(t, "index.rebuild", out["operation"])
	assert.Equal(t, "abcdef1234567890abcdef1234567890", out["trace_id"])
	assert.Equal(t, "1234567890abcdef", out["span_id"])
}

func TestFromContext(t *testing.T) {
	l := NewWithWriter("catalog", "info", &bytes.Buffer{})

	assert.Same(t, l, FromContext(NewContext(context.Background(), l)))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "DEBUG",
		"WARN":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in).String(), "level %q", in)
	}
}
