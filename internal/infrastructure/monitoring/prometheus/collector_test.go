package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, c MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewMetricsCollector_RuntimeCollectors(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace:            "test",
		EnableGoMetrics:      true,
		EnableProcessMetrics: true,
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "go_goroutines")
}

func TestRegisterCounter_IncrementsAndScrapes(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("calls_total", "calls", "tool")
	vec.WithLabelValues("gnina").Inc()
	vec.WithLabelValues("gnina").Add(2)

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_calls_total{tool="gnina"} 3`)
}

func TestRegister_SameNameReturnsExisting(t *testing.T) {
	c := newTestCollector(t)
	a := c.RegisterCounter("dup_total", "dup", "k")
	b := c.RegisterCounter("dup_total", "dup", "k")
	a.WithLabelValues("x").Inc()
	b.WithLabelValues("x").Inc()

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_dup_total{k="x"} 2`)
}

func TestRegister_TypeMismatchFallsBackToNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("mixed", "mixed", "k")
	g := c.RegisterGauge("mixed", "mixed", "k")

	assert.IsType(t, noopGaugeVec{}, g)
	g.WithLabelValues("x").Set(5)
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("active", "active", "engine")
	g.WithLabelValues("diffdock").Inc()
	g.WithLabelValues("diffdock").Inc()
	g.WithLabelValues("diffdock").Dec()

	h := c.RegisterHistogram("latency_seconds", "latency", []float64{1, 10}, "tool")
	h.WithLabelValues("obabel").Observe(0.5)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_active{engine="diffdock"} 1`)
	assert.Contains(t, out, `test_unit_latency_seconds_bucket{tool="obabel",le="1"} 1`)
	assert.Contains(t, out, `test_unit_latency_seconds_count{tool="obabel"} 1`)
}

func TestCollector_ConcurrentRegistration(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("race_total", "race", "k").WithLabelValues("v").Inc()
		}()
	}
	wg.Wait()
	assert.Contains(t, scrapeMetrics(t, c), `test_unit_race_total{k="v"} 16`)
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("timer_seconds", "timer", nil)
	timer := NewTimer(h.WithLabelValues())
	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.ObserveDuration(), time.Duration(0))
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_timer_seconds_count 1")

	bare := NewTimer(nil)
	assert.NotPanics(t, func() { bare.ObserveDuration() })
}

//Personal.AI order the ending
