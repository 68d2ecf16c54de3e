package monitoring

import (
	"sync"
	"time"
)

// MetricsCollector keeps serving counters and a rolling window of scoring
// latencies. Good enough for the /api/metrics endpoint; not a time series
// store.
type MetricsCollector struct {
	mu sync.RWMutex

	counters  map[string]float64
	latencies []time.Duration

	startTime time.Time
}

const latencyWindow = 1000

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:  make(map[string]float64),
		startTime: time.Now(),
	}
}

// IncrCounter adds value to the named counter.
func (mc *MetricsCollector) IncrCounter(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[name] += value
}

// ObserveLatency records one scoring duration.
func (mc *MetricsCollector) ObserveLatency(d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.latencies = append(mc.latencies, d)
	if len(mc.latencies) > latencyWindow {
		mc.latencies = mc.latencies[len(mc.latencies)-latencyWindow:]
	}
}

// Snapshot returns counters plus latency summary for the metrics endpoint.
func (mc *MetricsCollector) Snapshot() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	counters := make(map[string]float64, len(mc.counters))
	for name, value := range mc.counters {
		counters[name] = value
	}

	snapshot := map[string]interface{}{
		"counters":       counters,
		"uptime_seconds": time.Since(mc.startTime).Seconds(),
	}

	if len(mc.latencies) > 0 {
		var sum time.Duration
		min := mc.latencies[0]
		max := mc.latencies[0]
		for _, d := range mc.latencies {
			sum += d
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}
		snapshot["scoring_latency_ms"] = map[string]float64{
			"count":   float64(len(mc.latencies)),
			"average": float64(sum.Milliseconds()) / float64(len(mc.latencies)),
			"min":     float64(min.Milliseconds()),
			"max":     float64(max.Milliseconds()),
		}
	}

	return snapshot
}
