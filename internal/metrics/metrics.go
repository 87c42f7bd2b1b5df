// Package metrics 定义值勤服务的 Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stargate"

// 失败原因标签
const (
	ReasonInvalidInput = "invalid_input"
	ReasonNotFound     = "not_found"
	ReasonConflict     = "conflict"
	ReasonInvariant    = "invariant_violation"
	ReasonLockTimeout  = "lock_timeout"
	ReasonStorage      = "storage"
)

// Metrics 值勤分配与 HTTP 层指标；nil 接收者上的方法均为空操作
type Metrics struct {
	assignments  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	lockWait     prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New 在 reg 上注册全部指标；测试中传入 prometheus.NewRegistry() 避免重复注册
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		assignments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duty_assignments_total",
			Help:      "Total number of committed duty assignments.",
		}, []string{"outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duty_assignment_failures_total",
			Help:      "Total number of rejected or failed duty assignments.",
		}, []string{"reason"}),
		lockWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "duty_lock_wait_seconds",
			Help:      "Time spent waiting for the per-person timeline lock.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// AssignmentCommitted 记录一次成功提交的分配
func (m *Metrics) AssignmentCommitted(outcome string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(outcome).Inc()
}

// AssignmentFailed 记录一次失败的分配
func (m *Metrics) AssignmentFailed(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

// ObserveLockWait 记录等待人员锁的时长；以等待开始时刻调用
func (m *Metrics) ObserveLockWait(start time.Time) {
	if m == nil {
		return
	}
	m.lockWait.Observe(time.Since(start).Seconds())
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
