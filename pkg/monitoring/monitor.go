package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LogsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_workout_logs_processed_total",
			Help: "Total number of workout logs run through PR detection",
		},
	)

	RecordsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_personal_records_total",
			Help: "Total number of personal records detected",
		},
		[]string{"record_type"},
	)

	RecordConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_record_replace_conflicts_total",
			Help: "Total number of record replacements lost to a concurrent writer",
		},
	)

	MilestonesFlagged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_milestones_flagged_total",
			Help: "Total number of progress entries flagged as milestones",
		},
	)

	ProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_process_duration_seconds",
			Help:    "Duration of engine operations",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation"},
	)
)

func Init() {
	prometheus.MustRegister(LogsProcessed)
	prometheus.MustRegister(RecordsDetected)
	prometheus.MustRegister(RecordConflicts)
	prometheus.MustRegister(MilestonesFlagged)
	prometheus.MustRegister(ProcessDuration)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
