// Package metrics defines the gateway's Prometheus metrics in a standalone
// package to avoid import cycles between the flow services and HTTP handlers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login callbacks processed, by provider and outcome",
	}, []string{"provider", "outcome"})

	TokenExchangeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_exchange_failures_total",
		Help: "Token exchanges rejected or unreachable, by provider",
	}, []string{"provider"})

	SessionsRefreshed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_refreshed_total",
		Help: "Session cookies re-issued by the gate near expiry",
	})

	RoleSelections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_role_selections_total",
		Help: "Successful role-selection transitions, by role",
	}, []string{"role"})
)

// Register registers every gateway metric on the given registry, or the
// default registry if nil. Double registration is tolerated so tests can
// share a process-wide registry.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		LoginsTotal,
		TokenExchangeFailures,
		SessionsRefreshed,
		RoleSelections,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
