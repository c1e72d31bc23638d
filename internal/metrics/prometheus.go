package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Metrics are constructed at package init so callers can increment them
// unconditionally; they only surface once registered via
// InitCustomMetrics at startup.
var (
	TokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_tokens_issued_total",
		Help: "Total number of tokens issued, by grant type.",
	}, []string{"grant_type"})

	TokenVerificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_token_verifications_total",
		Help: "Total number of bearer token verifications attempted.",
	})

	TokenVerificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_token_verification_failures_total",
		Help: "Total number of bearer token verifications that failed.",
	})

	PolicyDenialsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_policy_denials_total",
		Help: "Total number of requests denied by a policy.",
	})

	GrantFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_grant_failures_total",
		Help: "Total number of failed grant requests, by grant type.",
	}, []string{"grant_type"})
)

// InitCustomMetrics registers the gatekeeper metrics with reg. It
// should be called once at application startup.
func InitCustomMetrics(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}
	for _, c := range []prometheus.Collector{
		TokensIssuedTotal,
		TokenVerificationsTotal,
		TokenVerificationFailures,
		PolicyDenialsTotal,
		GrantFailuresTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register gatekeeper metric")
		}
	}
}
