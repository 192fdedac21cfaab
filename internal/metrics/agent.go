package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "etiqueta",
			Subsystem: "agent",
			Name:      "dispatch_total",
			Help:      "Dispatch attempts by final job status.",
		},
		[]string{"status"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "etiqueta",
			Subsystem: "agent",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent sending one job to its printer.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "etiqueta",
			Subsystem: "agent",
			Name:      "poll_cycle_duration_seconds",
			Help:      "Duration of one poll/dispatch cycle.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	cycleJobs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "etiqueta",
			Subsystem: "agent",
			Name:      "poll_cycle_jobs",
			Help:      "Pending jobs seen per poll cycle.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	bytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "etiqueta",
			Subsystem: "agent",
			Name:      "printer_bytes_sent_total",
			Help:      "Raw ZPL bytes written to printer sockets.",
		},
	)
)

// ObserveDispatch records the outcome and duration of one job dispatch.
func ObserveDispatch(status string, elapsed time.Duration) {
	dispatchTotal.WithLabelValues(status).Inc()
	dispatchDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ObserveDispatchCycle records one completed poll cycle.
func ObserveDispatchCycle(elapsed time.Duration, jobCount int) {
	cycleDuration.Observe(elapsed.Seconds())
	cycleJobs.Observe(float64(jobCount))
}

// AddBytesSent accounts raw bytes written to a printer socket.
func AddBytesSent(n int) {
	if n > 0 {
		bytesSent.Add(float64(n))
	}
}
