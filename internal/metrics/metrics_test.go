package metrics

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewRegistry()

	c := r.GetCounter(ScoreEvaluationsTotal)
	require.NotNil(t, c)
	c.Inc("blocked")
	c.Add(2, "blocked")
	assert.Equal(t, 3.0, c.Value("blocked"))
	assert.Equal(t, 0.0, c.Value("recommended"))

	g := r.GetGauge(ActiveAutoAssigns)
	g.Add(1)
	g.Add(1)
	g.Add(-1)
	assert.Equal(t, 1.0, g.Value())
}

func TestHistogramOutput(t *testing.T) {
	r := &MetricsRegistry{
		counters:   map[string]*Counter{},
		gauges:     map[string]*Gauge{},
		histograms: map[string]*Histogram{},
	}
	h := r.NewHistogram("test_seconds", "测试", []string{"path"}, []float64{0.1, 1})
	h.Observe(0.0625, "/a")
	h.Observe(0.5, "/a")
	h.Observe(4, "/a")

	var buf bytes.Buffer
	r.Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "# TYPE test_seconds histogram")
	assert.Contains(t, out, `test_seconds_bucket{path="/a",le="0.1"} 1`)
	assert.Contains(t, out, `test_seconds_bucket{path="/a",le="1"} 2`)
	assert.Contains(t, out, `test_seconds_bucket{path="/a",le="+Inf"} 3`)
	assert.Contains(t, out, `test_seconds_count{path="/a"} 3`)
	assert.Contains(t, out, `test_seconds_sum{path="/a"} 4.5625`)
}

func TestFormatLabels(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		key   string
		extra []string
		want  string
	}{
		{"无标签", nil, "", nil, ""},
		{"单标签", []string{"status"}, "200", nil, `{status="200"}`},
		{"多标签", []string{"method", "path"}, labelKey([]string{"POST", "/api/v1/score"}), nil, `{method="POST",path="/api/v1/score"}`},
		{"附加标签", nil, "", []string{`le="+Inf"`}, `{le="+Inf"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatLabels(tt.names, tt.key, tt.extra...))
		})
	}
}

func TestHandler(t *testing.T) {
	RecordRequestMetrics("POST", "/api/v1/auto-assign", 200, 20*time.Millisecond)
	RecordDistanceFallback("haversine")
	RecordAutoAssign(50*time.Millisecond, 3, 1, 2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, body, `crewdispatch_http_requests_total{method="POST",path="/api/v1/auto-assign",status="200"}`)
	assert.Contains(t, body, `crewdispatch_distance_fallbacks_total{provider="haversine"}`)
	assert.Contains(t, body, `crewdispatch_auto_assign_jobs_total{outcome="understaffed"}`)
}

func TestAutoAssignStarted(t *testing.T) {
	g := GetRegistry().GetGauge(ActiveAutoAssigns)
	before := g.Value()
	done := AutoAssignStarted()
	assert.Equal(t, before+1, g.Value())
	done()
	assert.Equal(t, before, g.Value())
}
