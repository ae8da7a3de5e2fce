package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront_session"

// Login outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeUntrusted = "untrusted_token"
)

// Reasons a role's session was cleared
const (
	ReasonExpired       = "expired"
	ReasonLogout        = "logout"
	ReasonInitFailure   = "init_failure"
	ReasonGuard         = "guard"
	ReasonRefreshFailed = "refresh_failed"
)

// Guard triggers
const (
	TriggerTimer = "timer"
	TriggerFocus = "focus"
)

// Recorder counts session lifecycle events. A nil *Recorder records nothing.
type Recorder struct {
	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	sessionsCleared *prometheus.CounterVec
	guardChecks     *prometheus.CounterVec
}

// New registers the session metrics on registry.
func New(registry prometheus.Registerer) *Recorder {
	factory := promauto.With(registry)

	return &Recorder{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by role and outcome",
		}, []string{"role", "outcome"}),

		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Token refresh attempts by role and outcome",
		}, []string{"role", "outcome"}),

		sessionsCleared: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_cleared_total",
			Help:      "Role sessions cleared by reason",
		}, []string{"role", "reason"}),

		guardChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_checks_total",
			Help:      "Periodic session validations by trigger",
		}, []string{"trigger"}),
	}
}

func (r *Recorder) Login(role, outcome string) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(role, outcome).Inc()
}

func (r *Recorder) Refresh(role string, ok bool) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeError
	}
	r.refreshes.WithLabelValues(role, outcome).Inc()
}

func (r *Recorder) SessionCleared(role, reason string) {
	if r == nil {
		return
	}
	r.sessionsCleared.WithLabelValues(role, reason).Inc()
}

func (r *Recorder) GuardCheck(trigger string) {
	if r == nil {
		return
	}
	r.guardChecks.WithLabelValues(trigger).Inc()
}
