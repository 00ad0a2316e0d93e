package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	CycleCount     prometheus.Counter
	MessagesSeen   prometheus.Counter
	ClickSuccesses prometheus.Counter
	ClickFailures  prometheus.Counter
	NoLinkCount    prometheus.Counter
	ErrorCount     prometheus.Counter
	ReportsSent    prometheus.Counter
	ProcessingTime prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		CycleCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_rpa_cycle_count",
			Help: "Total number of triage cycles executed",
		}),
		MessagesSeen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_rpa_messages_seen",
			Help: "Total number of unread messages fetched",
		}),
		ClickSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_rpa_click_successes",
			Help: "Total number of successful link-action clicks",
		}),
		ClickFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_rpa_click_failures",
			Help: "Total number of failed link-action clicks",
		}),
		NoLinkCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_rpa_no_link_count",
			Help: "Total number of link-action messages with no extractable link",
		}),
		ErrorCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_rpa_error_count",
			Help: "Total number of messages that raised unexpected processing faults",
		}),
		ReportsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_rpa_reports_sent",
			Help: "Total number of outcome reports sent by email",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_rpa_processing_duration_seconds",
			Help:    "Time spent processing one link-action message",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
