package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestBackendMetricsRegistered(t *testing.T) {
	BackendRequestsTotal.WithLabelValues("GET", "/seed", "2xx").Inc()
	BackendRequestDuration.WithLabelValues("GET", "/seed").Observe(0.1)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"xsr_backend_requests_total":           false,
		"xsr_backend_request_duration_seconds": false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`cb("ok");`))
	}))

	before := testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("GET", "/echo", "2xx"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/echo", nil))
	if got := testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("GET", "/echo", "2xx")); got != before+1 {
		t.Errorf("2xx counter = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("GET", "/missing", "4xx"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/missing", nil))
	if got := testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("GET", "/missing", "4xx")); got != before+1 {
		t.Errorf("4xx counter = %v, want %v", got, before+1)
	}
}

func TestStatusWriterCapturesFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.WriteHeader(http.StatusTeapot)
	sw.WriteHeader(http.StatusInternalServerError)
	if sw.status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", sw.status, http.StatusTeapot)
	}
}

func TestCollectorLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(reg)

	c.Started()
	c.Started()
	c.Started()
	c.Finished("success", 120*time.Millisecond)
	c.Finished("timeout", 5*time.Second)
	c.TransportFailure()
	c.LinkDecision("chain")
	c.StaleDelivery()
	c.IDCollision()
	c.IDCollision()

	if got := testutil.ToFloat64(c.started); got != 3 {
		t.Errorf("started = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.pending); got != 0 {
		t.Errorf("pending = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.finished.WithLabelValues("success")); got != 1 {
		t.Errorf("finished{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.transportFailure); got != 1 {
		t.Errorf("transport failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.idCollisions); got != 2 {
		t.Errorf("id collisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.staleDeliveries); got != 1 {
		t.Errorf("stale deliveries = %v, want 1", got)
	}

	var m dto.Metric
	hist, err := c.duration.GetMetricWithLabelValues("timeout")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if err := hist.(prometheus.Histogram).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetHistogram().GetSampleSum(); got != 5 {
		t.Errorf("timeout duration sum = %v, want 5", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.Started()
	c.Finished("success", time.Second)
	c.TransportFailure()
	c.LinkDecision("none")
	c.StaleDelivery()
	c.IDCollision()
}
