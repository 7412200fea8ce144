// Package metrics exposes tracker counters in Prometheus format.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rozadev/roza/pkg/rozalib"
)

const metricPrefix = "roza_"

const (
	resultSuccess     = "success"
	resultError       = "error"
	resultUnavailable = "unavailable"
)

// Metrics bundles the daemon metrics.
type Metrics struct {
	Ticks            prometheus.Counter
	TickFailures     prometheus.Counter
	EventChanges     *prometheus.CounterVec
	AlertsFired      *prometheus.CounterVec
	PlaybackFailures *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	SecondsToNext    prometheus.Gauge
}

// New constructs the metrics and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "ticks_total",
			Help: "Total tracker ticks",
		}),
		TickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "tick_failures_total",
			Help: "Total ticks that reported an error",
		}),
		EventChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "event_changes_total",
				Help: "Total next-event changes by kind",
			},
			[]string{"kind"},
		),
		AlertsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_fired_total",
				Help: "Total alerts fired by kind and playing tier",
			},
			[]string{"kind", "tier"},
		),
		PlaybackFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "playback_failures_total",
				Help: "Total playback tier failures",
			},
			[]string{"tier"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total notifications by channel and result",
			},
			[]string{"channel", "result"},
		),
		SecondsToNext: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "seconds_to_next_event",
			Help: "Seconds remaining until the tracked event",
		}),
	}
	reg.MustRegister(
		m.Ticks,
		m.TickFailures,
		m.EventChanges,
		m.AlertsFired,
		m.PlaybackFailures,
		m.Notifications,
		m.SecondsToNext,
	)
	return m
}

// ObserveTick records one tracker tick.
func (m *Metrics) ObserveTick(err error, snap rozalib.CountdownSnapshot) {
	m.Ticks.Inc()
	if err != nil {
		m.TickFailures.Inc()
	}
	m.SecondsToNext.Set(snap.Remaining.Round(time.Second).Seconds())
}

func (m *Metrics) ObserveEventChange(ev rozalib.NextEvent) {
	m.EventChanges.WithLabelValues(string(ev.Kind)).Inc()
}

// ObserveDelivery records the outcome of a fired alert.
func (m *Metrics) ObserveDelivery(d rozalib.Delivery) {
	tier := d.Tier
	if tier == "" {
		tier = "none"
	}
	m.AlertsFired.WithLabelValues(string(d.Event.Kind), tier).Inc()
	for _, err := range d.Errors {
		var pe *rozalib.PlaybackError
		if errors.As(err, &pe) {
			m.PlaybackFailures.WithLabelValues(pe.Tier).Inc()
		}
	}
}

// ObserveNotification matches notify.Multi.OnResult.
func (m *Metrics) ObserveNotification(channel string, err error) {
	result := resultSuccess
	switch {
	case errors.Is(err, rozalib.ErrNotificationUnavailable):
		result = resultUnavailable
	case err != nil:
		result = resultError
	}
	m.Notifications.WithLabelValues(channel, result).Inc()
}
