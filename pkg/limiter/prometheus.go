package limiter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder is a MetricsRecorder that exports admission checks as
// Prometheus metrics:
//
//	ratelimit_calls_total{strategy,allowed}
//	ratelimit_op_duration_seconds{strategy}
type PrometheusRecorder struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the recorder's metrics on reg and returns
// it. Registering twice on the same registerer panics, as usual with
// promauto; share one recorder across limiters instead.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_calls_total",
			Help: "Admission checks performed, by strategy and outcome.",
		}, []string{"strategy", "allowed"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ratelimit_op_duration_seconds",
			Help:    "Latency of admission checks against the shared store.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
	}
}

func (p *PrometheusRecorder) Add(name string, value float64, tags map[string]string) {
	if name == metricCalls {
		p.calls.WithLabelValues(tags["strategy"], tags["allowed"]).Add(value)
	}
}

func (p *PrometheusRecorder) Observe(name string, value float64, tags map[string]string) {
	if name == metricLatency {
		p.latency.WithLabelValues(tags["strategy"]).Observe(value)
	}
}
