// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspection_sessions_opened_total",
			Help: "Total number of questionnaire sessions opened",
		},
	)

	SubmissionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_submissions_completed_total",
			Help: "Total number of submissions committed, by resulting ticket status",
		},
		[]string{"status"},
	)

	SubmissionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_submissions_failed_total",
			Help: "Total number of submission attempts that failed",
		},
		[]string{"error_code"},
	)

	PhotosUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspection_photos_uploaded_total",
			Help: "Total number of photo evidence objects uploaded",
		},
	)

	SubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "inspection_submission_duration_seconds",
			Help: "Duration of the full submission pipeline in seconds",
		},
	)
)
