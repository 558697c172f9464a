// Package metrics holds the Prometheus collectors shared by the server and the worker.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/campus-seminarios/backend/pkg/queue"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seminarios_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seminarios_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seminarios_emails_total",
		Help: "Emails processed by type and status (sent, failed).",
	}, []string{"type", "status"})

	PresenceRegistrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seminarios_presence_registrations_total",
		Help: "Presences registered through presence links.",
	})

	JobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seminarios_jobs_enqueued_total",
		Help: "Jobs enqueued by type.",
	}, []string{"type"})
)

// EmailEnqueuer is the email side of the job queue.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, jobType queue.JobType, payload interface{}) (string, error)
}

// CountingEnqueuer counts successfully enqueued jobs by type.
type CountingEnqueuer struct {
	EmailEnqueuer
}

// EnqueueEmail implements EmailEnqueuer.
func (q CountingEnqueuer) EnqueueEmail(ctx context.Context, jobType queue.JobType, payload interface{}) (string, error) {
	id, err := q.EmailEnqueuer.EnqueueEmail(ctx, jobType, payload)
	if err == nil {
		JobsEnqueued.WithLabelValues(string(jobType)).Inc()
	}
	return id, err
}
