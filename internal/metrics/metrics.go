// Package metrics exposes Prometheus instruments for the scheduling engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics counts availability lookups, booking outcomes and
// notification deliveries. A nil *SchedulerMetrics is a valid no-op.
type SchedulerMetrics struct {
	availabilityTotal   *prometheus.CounterVec
	availabilityLatency prometheus.Histogram
	slotCacheTotal      *prometheus.CounterVec
	bookingsTotal       *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	changeEventsTotal   *prometheus.CounterVec
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "scheduler",
			Name:      "availability_requests_total",
			Help:      "Availability lookups by outcome reason",
		}, []string{"reason"}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "scheduler",
			Name:      "availability_latency_seconds",
			Help:      "Latency of availability computation including store reads",
			Buckets:   prometheus.DefBuckets,
		}),
		slotCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "scheduler",
			Name:      "slot_cache_total",
			Help:      "Slot cache lookups",
		}, []string{"result"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "scheduler",
			Name:      "bookings_total",
			Help:      "Appointment mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notification hand-offs by kind and status",
		}, []string{"kind", "status"}),
		changeEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "realtime",
			Name:      "change_events_total",
			Help:      "Change events received by entity",
		}, []string{"entity"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.availabilityTotal,
		m.availabilityLatency,
		m.slotCacheTotal,
		m.bookingsTotal,
		m.notificationsTotal,
		m.changeEventsTotal,
	)
	return m
}

// ObserveAvailability records one lookup. An empty reason is reported as "available".
func (m *SchedulerMetrics) ObserveAvailability(reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "available"
	}
	m.availabilityTotal.WithLabelValues(reason).Inc()
	m.availabilityLatency.Observe(elapsed.Seconds())
}

func (m *SchedulerMetrics) ObserveSlotCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.slotCacheTotal.WithLabelValues(result).Inc()
}

func (m *SchedulerMetrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulerMetrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(kind, status).Inc()
}

func (m *SchedulerMetrics) ObserveChangeEvent(entity string) {
	if m == nil {
		return
	}
	m.changeEventsTotal.WithLabelValues(entity).Inc()
}
