package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestInitDisabled(t *testing.T) {
	require.NoError(t, Init(DefaultTracingConfig()))
	defer Shutdown(context.Background()) //nolint:errcheck

	_, span := StartSpan(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsSampled())
	EndSpan(span, nil)
}

func TestSpansAreExported(t *testing.T) {
	var out bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Writer = &out
	require.NoError(t, Init(cfg))

	_, span := StartSpan(context.Background(), "inspect.document", attribute.Int("rows", 3))
	EndSpan(span, errors.New("malformed"))

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, out.String(), "inspect.document")
	assert.Contains(t, out.String(), "malformed")
}

func TestSamplingRateZeroDropsSpans(t *testing.T) {
	var out bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.SamplingRate = 0
	cfg.Writer = &out
	require.NoError(t, Init(cfg))

	_, span := StartSpan(context.Background(), "dropped")
	EndSpan(span, nil)

	require.NoError(t, Shutdown(context.Background()))
	assert.NotContains(t, out.String(), "dropped")
}

func TestTracingMiddleware(t *testing.T) {
	var out bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Writer = &out
	require.NoError(t, Init(cfg))

	var inner trace.SpanContext
	handler := TracingMiddleware("gtminspect")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.NoError(t, Shutdown(context.Background()))
	assert.True(t, inner.IsValid())
	assert.NotEmpty(t, rec.Header().Get("Traceparent"))
	assert.Contains(t, out.String(), "GET /api/health")
}
