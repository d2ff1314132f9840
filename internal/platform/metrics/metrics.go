package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	LoginsTotal       prometheus.Counter
	LoginFailures     prometheus.Counter
	TokensRefreshed   prometheus.Counter
	AuthDenied        *prometheus.CounterVec
	ActivityRecorded  prometheus.Counter
	ActivityDropped   prometheus.Counter
	ActivityMirrored  prometheus.Counter
	ActivitySearches  prometheus.Counter
	LockoutsTriggered prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a specific registerer, which keeps tests
// free of default-registry collisions.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "registra_logins_total",
			Help: "Total number of successful logins.",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "registra_login_failures_total",
			Help: "Total number of failed login attempts.",
		}),
		TokensRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Name: "registra_tokens_refreshed_total",
			Help: "Total number of access tokens minted from refresh tokens.",
		}),
		AuthDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registra_auth_denied_total",
			Help: "Requests rejected by the auth gate, by reason.",
		}, []string{"reason"}),
		ActivityRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "registra_activity_recorded_total",
			Help: "Activity records persisted.",
		}),
		ActivityDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "registra_activity_dropped_total",
			Help: "Activity records dropped due to queue overflow or store failure.",
		}),
		ActivityMirrored: factory.NewCounter(prometheus.CounterOpts{
			Name: "registra_activity_mirrored_total",
			Help: "Activity records mirrored to the Kafka topic.",
		}),
		ActivitySearches: factory.NewCounter(prometheus.CounterOpts{
			Name: "registra_activity_searches_total",
			Help: "Filtered activity searches served.",
		}),
		LockoutsTriggered: factory.NewCounter(prometheus.CounterOpts{
			Name: "registra_login_lockouts_total",
			Help: "Login lockouts triggered by repeated failures.",
		}),
	}
}
