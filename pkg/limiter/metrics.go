package limiter

import (
	"strconv"
	"time"
)

// Metric names emitted through the MetricsRecorder. Every admission check
// records one ratelimit.call with strategy and allowed tags, and one
// ratelimit.latency observation in seconds.
const (
	metricCalls   = "ratelimit.call"
	metricLatency = "ratelimit.latency"
)

// MetricsRecorder receives counters and timing observations from the
// limiters. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	Add(name string, value float64, tags map[string]string)
	Observe(name string, value float64, tags map[string]string)
}

// NoOpMetricsRecorder is a placeholder that does nothing.
// It ensures we never have to check 'if r.recorder != nil' in our hot path.
type NoOpMetricsRecorder struct{}

func (NoOpMetricsRecorder) Add(name string, value float64, tags map[string]string)     {}
func (NoOpMetricsRecorder) Observe(name string, value float64, tags map[string]string) {}

// observe records one admission check. start is the wall-clock start of the
// operation, independent of the injected domain clock.
func (s *settings) observe(strategy string, start time.Time, allowed bool) {
	tags := map[string]string{
		"strategy": strategy,
		"allowed":  strconv.FormatBool(allowed),
	}
	s.rec.Add(metricCalls, 1, tags)
	s.rec.Observe(metricLatency, time.Since(start).Seconds(), tags)
}
