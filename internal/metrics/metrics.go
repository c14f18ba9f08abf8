// Package metrics provides Prometheus metrics for the download queue.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

const namespace = "kara_dl"

// Metrics holds the queue collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	StatusTransitions *prometheus.CounterVec
	Enqueued          prometheus.Counter
	BlacklistBlocked  prometheus.Counter
	TransferDuration  *prometheus.HistogramVec
	InFlight          prometheus.Gauge
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StatusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_transitions_total",
				Help:      "Total number of applied download status changes",
			},
			[]string{"status"},
		),
		Enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enqueued_total",
			Help:      "Total number of downloads added to the queue",
		}),
		BlacklistBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blacklist_blocked_total",
			Help:      "Total number of candidates rejected by blacklist criteria",
		}),
		TransferDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Duration of media transfers in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"result"},
		),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight",
			Help:      "Number of media transfers currently running",
		}),
	}

	reg.MustRegister(
		m.StatusTransitions,
		m.Enqueued,
		m.BlacklistBlocked,
		m.TransferDuration,
		m.InFlight,
	)
	return m
}

// RecordTransition counts a status change
func (m *Metrics) RecordTransition(status domain.DownloadStatus) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(string(status)).Inc()
}

// RecordEnqueued counts n new queue items
func (m *Metrics) RecordEnqueued(n int) {
	if m == nil {
		return
	}
	m.Enqueued.Add(float64(n))
}

// RecordBlocked counts n blacklisted candidates
func (m *Metrics) RecordBlocked(n int) {
	if m == nil {
		return
	}
	m.BlacklistBlocked.Add(float64(n))
}

// RecordTransfer observes one finished transfer
func (m *Metrics) RecordTransfer(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.TransferDuration.WithLabelValues(result).Observe(d.Seconds())
}

// TransferStarted increments the in-flight gauge
func (m *Metrics) TransferStarted() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

// TransferFinished decrements the in-flight gauge
func (m *Metrics) TransferFinished() {
	if m == nil {
		return
	}
	m.InFlight.Dec()
}
