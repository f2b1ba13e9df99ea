package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "imagehub", Name: "logins_total", Help: "Number of OIDC login attempts by outcome."},
		[]string{"outcome"},
	)
	TokenValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "imagehub", Name: "token_validations_total", Help: "Number of bearer credential validations by outcome."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(TokenValidations)
}
