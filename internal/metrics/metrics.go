// Package metrics provides Prometheus metrics collection for the cut
// optimizer service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksSubmittedTotal tracks admission outcomes by status code
	// (§4.1 submitTask).
	TasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutoptimizer_tasks_submitted_total",
			Help: "Total number of submitTask calls by resulting status",
		},
		[]string{"status"},
	)

	// TasksActive tracks the current count of tasks per lifecycle status.
	TasksActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cutoptimizer_tasks_active",
			Help: "Current number of tasks by status",
		},
		[]string{"status"},
	)

	// TaskDuration tracks task wall-clock duration from RUNNING to a
	// terminal status.
	TaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cutoptimizer_task_duration_seconds",
			Help:    "Task duration in seconds from RUNNING to a terminal status",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// WorkersSpawnedTotal tracks CutListWorker completions by first-cut
	// policy group and outcome: finished, errored, or rejected by the
	// executor.
	WorkersSpawnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutoptimizer_workers_spawned_total",
			Help: "Total number of CutListWorker completions by group and outcome",
		},
		[]string{"group", "outcome"},
	)

	// WorkersAlive tracks the current count of live workers per task's
	// permutation spawner.
	WorkersAlive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cutoptimizer_workers_alive",
			Help: "Current number of live CutListWorkers across all tasks",
		},
	)

	// StockBundlesGenerated tracks how many distinct stock bundles the
	// picker's generator has produced per task material.
	StockBundlesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cutoptimizer_stock_bundles_generated_total",
			Help: "Total number of stock bundles produced by stock-picker generators",
		},
	)

	// WatchdogTerminationsTotal tracks tasks the watchdog force-terminated,
	// by reason.
	WatchdogTerminationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutoptimizer_watchdog_terminations_total",
			Help: "Total number of tasks terminated by the watchdog, by reason",
		},
		[]string{"reason"},
	)
)

// RecordTaskSubmission increments the admission counter for status.
func RecordTaskSubmission(status string) {
	TasksSubmittedTotal.WithLabelValues(status).Inc()
}

// RecordTaskDuration observes the elapsed duration of a finished task.
func RecordTaskDuration(d time.Duration) {
	TaskDuration.Observe(d.Seconds())
}

// RecordWorkerFinished increments the worker-completion counter for group
// and outcome ("ok", "error" or "rejected").
func RecordWorkerFinished(group, outcome string) {
	WorkersSpawnedTotal.WithLabelValues(group, outcome).Inc()
}

// RecordWatchdogTermination increments the watchdog termination counter
// for reason ("error-threshold", "absolute-timeout", "post-allfit-timeout",
// "client-silence").
func RecordWatchdogTermination(reason string) {
	WatchdogTerminationsTotal.WithLabelValues(reason).Inc()
}

// SetTasksActive overwrites the active-task gauge for status.
func SetTasksActive(status string, count int) {
	TasksActive.WithLabelValues(status).Set(float64(count))
}
