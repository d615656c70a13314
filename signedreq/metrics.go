package signedreq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification results reported in the "result" label.
const (
	resultAccepted         = "accepted"
	resultInvalidSignature = "invalid_signature"
	resultExpired          = "expired"
	resultReplayed         = "replayed"
	resultCacheError       = "cache_error"
)

// Metrics counts signing and verification outcomes per profile. A nil
// *Metrics records nothing.
type Metrics struct {
	signed        *prometheus.CounterVec
	verifications *prometheus.CounterVec
}

// NewMetrics registers the counters with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		signed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signed_requests",
				Name:      "signed_total",
				Help:      "Total number of outgoing requests signed",
			},
			[]string{"profile"},
		),
		verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signed_requests",
				Name:      "verifications_total",
				Help:      "Total number of incoming requests verified, by result",
			},
			[]string{"profile", "result"},
		),
	}
}

func (m *Metrics) observeSigned(profile string) {
	if m == nil {
		return
	}

	m.signed.WithLabelValues(profile).Inc()
}

func (m *Metrics) observeVerification(profile, result string) {
	if m == nil {
		return
	}

	m.verifications.WithLabelValues(profile, result).Inc()
}
