package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for booking and conversation flows.
type SchedulingMetrics struct {
	bookingAttempts   *prometheus.CounterVec
	bookingLatency    *prometheus.HistogramVec
	availabilityCalls *prometheus.CounterVec
	conversationTurns *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "Latency of booking writes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		availabilityCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "availability",
			Name:      "queries_total",
			Help:      "Availability queries by result",
		}, []string{"result"}),
		conversationTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Conversation turns by resulting phase",
		}, []string{"phase"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Confirmation notifications by channel and status",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingAttempts, m.bookingLatency, m.availabilityCalls, m.conversationTurns, m.notifications)
	return m
}

// ObserveBooking records a booking attempt. outcome is booked, conflict, invalid or error.
func (m *SchedulingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingAttempts.WithLabelValues(outcome).Inc()
	m.bookingLatency.WithLabelValues(outcome).Observe(seconds)
}

// ObserveAvailability records whether a query found any start time.
func (m *SchedulingMetrics) ObserveAvailability(found bool) {
	if m == nil {
		return
	}
	label := "empty"
	if found {
		label = "found"
	}
	m.availabilityCalls.WithLabelValues(label).Inc()
}

func (m *SchedulingMetrics) ObserveTurn(phase string) {
	if m == nil {
		return
	}
	m.conversationTurns.WithLabelValues(phase).Inc()
}

func (m *SchedulingMetrics) ObserveNotification(channel string, delivered bool) {
	if m == nil {
		return
	}
	status := "failed"
	if delivered {
		status = "sent"
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}
