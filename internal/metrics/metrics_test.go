package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AssignmentCommitted("regular")
	m.AssignmentCommitted("regular")
	m.AssignmentCommitted("retirement")
	m.AssignmentFailed(ReasonNotFound)
	m.ObserveLockWait(time.Now())
	m.ObserveHTTP("POST", "/api/v1/duties", 201, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.assignments.WithLabelValues("regular")); got != 2 {
		t.Errorf("regular 计数期望 2，得到 %v", got)
	}
	if got := testutil.ToFloat64(m.assignments.WithLabelValues("retirement")); got != 1 {
		t.Errorf("retirement 计数期望 1，得到 %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues(ReasonNotFound)); got != 1 {
		t.Errorf("not_found 计数期望 1，得到 %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/v1/duties", "201")); got != 1 {
		t.Errorf("HTTP 计数期望 1，得到 %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.AssignmentCommitted("regular")
	m.AssignmentFailed(ReasonStorage)
	m.ObserveLockWait(time.Now())
	m.ObserveHTTP("GET", "", 404, time.Millisecond)
}
