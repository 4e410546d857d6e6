// Package metrics holds the Prometheus collectors of the exchange core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "skillswap"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	bookings            *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	pointsAwarded       prometheus.Counter
	notificationsFailed prometheus.Counter
	sessionsExpired     prometheus.Counter
	matchCandidates     prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_total",
				Help:      "Session booking attempts by result",
			},
			[]string{"result"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session state transitions by transition and result",
			},
			[]string{"transition", "result"},
		),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Progress points written for completed sessions",
		}),
		notificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that could not be delivered",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Sessions cancelled by the expiry sweep",
		}),
		matchCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_candidates",
			Help:      "Size of the candidate pool per match request",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}

	reg.MustRegister(
		m.bookings,
		m.transitions,
		m.pointsAwarded,
		m.notificationsFailed,
		m.sessionsExpired,
		m.matchCandidates,
	)

	return m
}

func (m *Metrics) Booking(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(name, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(name, result).Inc()
}

func (m *Metrics) PointsAwarded(points int) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAwarded.Add(float64(points))
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.notificationsFailed.Inc()
}

func (m *Metrics) SessionsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsExpired.Add(float64(n))
}

func (m *Metrics) MatchCandidates(n int) {
	if m == nil {
		return
	}
	m.matchCandidates.Observe(float64(n))
}
