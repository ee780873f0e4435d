package engine_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/xela07ax/medipredict-console/internal/engine"
)

func TestTracingMiddleware(t *testing.T) {
	var seen string
	h := engine.TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = engine.TraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Trace-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)

	assert.Equal(t, "00000000-0000-0000-0000-000000000000", engine.TraceID(context.Background()))
}

func TestMetrics_Recorders(t *testing.T) {
	m := engine.NewMetrics(nil)

	m.EnrichmentOutcome("success", 10*time.Millisecond)
	m.EnrichmentOutcome("failed", 0)
	m.SourceFetched("devices", true)
	m.SourceFetched("predictions", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentOutcomes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentOutcomes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetches.WithLabelValues("predictions", "unavailable")))
}
