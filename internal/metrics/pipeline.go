// Package metrics holds the Prometheus collectors for the print pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline counts processed events by outcome.
type Pipeline struct {
	events          *prometheus.CounterVec
	pages           prometheus.Counter
	duration        *prometheus.HistogramVec
	archiveFailures prometheus.Counter
	reportFailures  prometheus.Counter
}

// NewPipeline creates the collectors and registers them on reg.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	p := &Pipeline{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "printbot_events_total",
				Help: "Total number of chat events processed, by outcome.",
			},
			[]string{"outcome"},
		),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printbot_pages_printed_total",
			Help: "Total number of pages submitted to the printer.",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "printbot_event_duration_seconds",
				Help:    "Time spent processing one chat event.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		archiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printbot_archive_failures_total",
			Help: "Total number of failed archive uploads.",
		}),
		reportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printbot_report_failures_total",
			Help: "Total number of outcome reports that could not be delivered.",
		}),
	}

	for _, c := range []prometheus.Collector{p.events, p.pages, p.duration, p.archiveFailures, p.reportFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Observe records one processed event.
func (p *Pipeline) Observe(outcome string, pages uint, took time.Duration) {
	p.events.WithLabelValues(outcome).Inc()
	p.duration.WithLabelValues(outcome).Observe(took.Seconds())
	if pages > 0 {
		p.pages.Add(float64(pages))
	}
}

// ArchiveFailed counts an archive upload that did not go through.
func (p *Pipeline) ArchiveFailed() {
	p.archiveFailures.Inc()
}

// ReportFailed counts a report that could not be sent.
func (p *Pipeline) ReportFailed() {
	p.reportFailures.Inc()
}
