package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a Prometheus registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler exposing reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics holds the gateway's own metrics
type AppMetrics struct {
	DeviceCalls        *prometheus.CounterVec   // labels: operation, result=ok|error
	DeviceCallDuration *prometheus.HistogramVec // labels: operation
	HTTPRequests       *prometheus.CounterVec   // labels: route, method, status
}

// NewAppMetrics registers and returns the gateway metrics
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		DeviceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "e3dc_device_calls_total",
			Help: "Device calls issued through the shared session.",
		}, []string{"operation", "result"}),
		DeviceCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "e3dc_device_call_duration_seconds",
			Help:    "Device call latency including time spent waiting for the session.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "e3dc_http_requests_total",
			Help: "HTTP requests handled by the gateway.",
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(m.DeviceCalls, m.DeviceCallDuration, m.HTTPRequests)
	return m
}

// ObserveDeviceCall records one device call. Safe on a nil receiver.
func (m *AppMetrics) ObserveDeviceCall(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DeviceCalls.WithLabelValues(operation, result).Inc()
	m.DeviceCallDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
