// Package metrics collects and exposes Prometheus metrics for the auth
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the HTTP layer records outcomes through.
type Recorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordChallengeIssued()
	RecordTwoFactorSuccess()
	RecordTwoFactorFailure(reason string)
	RecordTokenRejected(reason string)
}

// Collector is the Prometheus-backed Recorder implementation.
type Collector struct {
	loginSuccess     prometheus.Counter
	loginFail        *prometheus.CounterVec
	challengeIssued  prometheus.Counter
	twoFactorSuccess prometheus.Counter
	twoFactorFail    *prometheus.CounterVec
	tokenRejected    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authsvc_login_success_total",
			Help: "Successful password logins (session issued directly).",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsvc_login_fail_total",
			Help: "Failed password logins by reason.",
		}, []string{"reason"}),
		challengeIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authsvc_2fa_challenge_issued_total",
			Help: "Pending 2FA challenges issued after a correct password.",
		}),
		twoFactorSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authsvc_2fa_success_total",
			Help: "Completed 2FA verifications (session issued).",
		}),
		twoFactorFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsvc_2fa_fail_total",
			Help: "Failed 2FA verifications by reason.",
		}, []string{"reason"}),
		tokenRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsvc_token_rejected_total",
			Help: "Bearer tokens rejected during authorization by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.challengeIssued,
		c.twoFactorSuccess,
		c.twoFactorFail,
		c.tokenRejected,
	)

	return c
}

func (c *Collector) RecordLoginSuccess() { c.loginSuccess.Inc() }

func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordChallengeIssued() { c.challengeIssued.Inc() }

func (c *Collector) RecordTwoFactorSuccess() { c.twoFactorSuccess.Inc() }

func (c *Collector) RecordTwoFactorFailure(reason string) {
	c.twoFactorFail.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordTokenRejected(reason string) {
	c.tokenRejected.WithLabelValues(reason).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
