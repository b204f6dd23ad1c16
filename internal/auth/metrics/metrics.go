package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Admin decision sources, used as the "source" label of AdminChecks.
const (
	AdminSourceNoIdentity = "no_identity"
	AdminSourcePrivileged = "privileged"
	AdminSourceCached     = "cached"
	AdminSourceStore      = "store"
	AdminSourceFailed     = "failed"
)

// Metrics holds Prometheus collectors for console authentication.
type Metrics struct {
	SignIns                  *prometheus.CounterVec
	SignOuts                 prometheus.Counter
	SessionRestores          *prometheus.CounterVec
	ProfilesCreated          prometheus.Counter
	ProfilesPromoted         prometheus.Counter
	ProfileResolveFailures   prometheus.Counter
	ProfileFetchDurationMs   prometheus.Histogram
	AdminChecks              *prometheus.CounterVec
	AdminCheckRetries        prometheus.Counter
	StaleResolutionsDropped  prometheus.Counter
	AuthorizationStateEvents *prometheus.CounterVec
	ClientContexts           prometheus.Gauge
}

// New registers auth collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SignIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_sign_ins_total",
			Help: "Password sign-in attempts by outcome",
		}, []string{"outcome"}),
		SignOuts: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_sign_outs_total",
			Help: "Total number of sign-outs",
		}),
		SessionRestores: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_session_restores_total",
			Help: "Persisted session lookups at startup by result",
		}, []string{"result"}),
		ProfilesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_profiles_created_total",
			Help: "Profiles created by the resolver for identities without one",
		}),
		ProfilesPromoted: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_profiles_promoted_total",
			Help: "Privileged profiles healed back to is_admin=true",
		}),
		ProfileResolveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_profile_resolve_failures_total",
			Help: "Profile resolutions that ended without a profile",
		}),
		ProfileFetchDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "console_profile_fetch_duration_ms",
			Help:    "Duration of profile resolution in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		AdminChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_admin_checks_total",
			Help: "Admin status decisions by the source that answered",
		}, []string{"source", "result"}),
		AdminCheckRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_admin_check_retries_total",
			Help: "Admin status store reads that needed the retry",
		}),
		StaleResolutionsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_stale_resolutions_dropped_total",
			Help: "Profile resolutions discarded because a newer change event superseded them",
		}),
		AuthorizationStateEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_auth_state_events_total",
			Help: "Identity change events handled by the authorization context",
		}, []string{"event"}),
		ClientContexts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "console_client_contexts",
			Help: "Authorization contexts currently held for browser sessions",
		}),
	}
}

func (m *Metrics) IncrementSignIns(outcome string) {
	m.SignIns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementSignOuts() {
	m.SignOuts.Inc()
}

func (m *Metrics) IncrementSessionRestores(result string) {
	m.SessionRestores.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementProfilesCreated() {
	m.ProfilesCreated.Inc()
}

func (m *Metrics) IncrementProfilesPromoted() {
	m.ProfilesPromoted.Inc()
}

func (m *Metrics) IncrementProfileResolveFailures() {
	m.ProfileResolveFailures.Inc()
}

func (m *Metrics) ObserveProfileFetchDuration(durationMs float64) {
	m.ProfileFetchDurationMs.Observe(durationMs)
}

func (m *Metrics) IncrementAdminChecks(source string, isAdmin bool) {
	result := "denied"
	if isAdmin {
		result = "granted"
	}
	m.AdminChecks.WithLabelValues(source, result).Inc()
}

func (m *Metrics) IncrementAdminCheckRetries() {
	m.AdminCheckRetries.Inc()
}

func (m *Metrics) IncrementStaleResolutionsDropped() {
	m.StaleResolutionsDropped.Inc()
}

func (m *Metrics) IncrementAuthorizationStateEvents(event string) {
	m.AuthorizationStateEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) SetClientContexts(n int) {
	m.ClientContexts.Set(float64(n))
}
