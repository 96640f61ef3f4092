package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()
	c.RecordLoginSuccess()
	c.RecordLoginFailure("invalid_password")
	c.RecordChallengeIssued()
	c.RecordTwoFactorSuccess()
	c.RecordTwoFactorFailure("invalid_two_factor_code")
	c.RecordTokenRejected("expired")

	require.Equal(t, 2.0, testutil.ToFloat64(c.loginSuccess))
	require.Equal(t, 1.0, testutil.ToFloat64(c.loginFail.WithLabelValues("invalid_password")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.challengeIssued))
	require.Equal(t, 1.0, testutil.ToFloat64(c.twoFactorSuccess))
	require.Equal(t, 1.0, testutil.ToFloat64(c.twoFactorFail.WithLabelValues("invalid_two_factor_code")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.tokenRejected.WithLabelValues("expired")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLoginSuccess()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler(reg).ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "authsvc_login_success_total 1")
}
