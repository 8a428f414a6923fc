package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start a worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var providerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "provider_calls_total",
	Help: "Completed external provider calls by purpose and provider",
}, []string{"purpose", "provider"})

var keyAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "key_assignments_total",
	Help: "API key assignments by pool and mode (sticky, rotated, fallback)",
}, []string{"pool", "mode"})

var ingestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_documents_total",
	Help: "Ingested documents by outcome",
}, []string{"outcome"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

var jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "job_duration_seconds",
	Help:    "Total time spent executing a job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"type"})

func IncrementJobsInQueue() { countJobsInQueue.Inc() }
func DecrementJobsInQueue() { countJobsInQueue.Dec() }

func StartDispatcherSignalCount() { dispatcherSignalCount.Inc() }

func IncrementActiveWorkerCount() { activeWorkerCount.Inc() }
func DecrementActiveWorkerCount() { activeWorkerCount.Dec() }

func CountProviderCall(purpose, provider string) {
	providerCalls.WithLabelValues(purpose, provider).Inc()
}

func CountKeyAssignment(pool, mode string) {
	keyAssignments.WithLabelValues(pool, mode).Inc()
}

func CountIngestOutcome(outcome string) {
	ingestOutcomes.WithLabelValues(outcome).Inc()
}

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	jobDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
