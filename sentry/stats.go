package sentry

import "github.com/prometheus/client_golang/prometheus"

// Statistics holds the sequencer's Prometheus counters, grounded in the
// teacher's own node metrics server wiring. A fresh Statistics is safe to
// register exactly once against a prometheus.Registerer; NewStatistics
// registers nothing when given a nil Registerer, and the sequencer tests
// pass a nil *Statistics to disable metrics altogether.
type Statistics struct {
	RequestsIssued  prometheus.Counter
	RequestsRenewed prometheus.Counter
	BodiesReceived  prometheus.Counter
	BodiesWithdrawn prometheus.Counter
	Penalties       *prometheus.CounterVec
	Outstanding     prometheus.Gauge
}

// NewStatistics builds and registers the sequencer's counters against reg.
func NewStatistics(reg prometheus.Registerer) *Statistics {
	s := &Statistics{
		RequestsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentry", Subsystem: "bds", Name: "requests_issued_total",
			Help: "Number of fresh body requests issued.",
		}),
		RequestsRenewed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentry", Subsystem: "bds", Name: "requests_renewed_total",
			Help: "Number of stale body requests renewed with a fresh request id.",
		}),
		BodiesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentry", Subsystem: "bds", Name: "bodies_received_total",
			Help: "Number of bodies accepted and marked ready.",
		}),
		BodiesWithdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentry", Subsystem: "bds", Name: "bodies_withdrawn_total",
			Help: "Number of ready bodies withdrawn for persistence.",
		}),
		Penalties: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentry", Subsystem: "bds", Name: "penalties_total",
			Help: "Number of peer penalties issued, by kind.",
		}, []string{"kind"}),
		Outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sentry", Subsystem: "bds", Name: "outstanding_requests",
			Help: "Current number of outstanding body requests.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.RequestsIssued, s.RequestsRenewed, s.BodiesReceived, s.BodiesWithdrawn, s.Penalties, s.Outstanding)
	}
	return s
}

func (s *Statistics) countPenalty(kind PenaltyKind) {
	if kind == PenaltyNone {
		return
	}
	s.Penalties.WithLabelValues(kind.String()).Inc()
}
