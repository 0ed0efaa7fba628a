package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsRecordRequest(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordRequest("tools/list", "ok", 5*time.Millisecond)
	m.RecordRequest("tools/list", "ok", 7*time.Millisecond)
	m.RecordRequest("tools/call", "error", time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `rustymail_mcp_requests_total{method="tools/list",status="ok"} 2`)
	assert.Contains(t, body, `rustymail_mcp_requests_total{method="tools/call",status="error"} 1`)
}

func TestMetricsChannelGauge(t *testing.T) {
	m := NewMetrics(nil)

	m.ChannelOpened()
	m.ChannelOpened()
	m.ChannelClosed()

	assert.Contains(t, scrape(t, m), "rustymail_mcp_sse_channels_active 1")
}

func TestMetricsSessionGaugeFunc(t *testing.T) {
	count := 3.0
	m := NewMetrics(func() float64 { return count })

	assert.Contains(t, scrape(t, m), "rustymail_mcp_sessions_active 3")

	count = 0
	assert.Contains(t, scrape(t, m), "rustymail_mcp_sessions_active 0")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("x", "ok", time.Millisecond)
	m.RecordToolCall("y", "ok", time.Millisecond)
	m.ChannelOpened()
	m.ChannelClosed()
}

func TestTracerNoopPipeline(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{ExporterType: ExporterNoop})
	require.NoError(t, err)

	ctx, span := tracer.StartMethodSpan(context.Background(), "tools/list")
	span.End()
	tracer.RecordError(ctx, assert.AnError)
	require.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNilTracerIsSafe(t *testing.T) {
	var tracer *Tracer
	ctx, span := tracer.StartMethodSpan(context.Background(), "ping")
	span.End()
	tracer.RecordError(ctx, assert.AnError)
	assert.NoError(t, tracer.Shutdown(context.Background()))
}
