package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.RecordRegistrationRequest("request", "ok")
	m.RecordRegistrationRequest("request", "conflict")
	m.RecordVerification("invalid_code")
	m.RecordLogin("ok")
	m.RecordLogin("ok")

	assert.InDelta(t, 1, testutil.ToFloat64(m.RegistrationRequests.WithLabelValues("request", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RegistrationVerifications.WithLabelValues("invalid_code")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Logins.WithLabelValues("ok")), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRegistrationRequest("request", "ok")
	m.RecordVerification("ok")
	m.RecordLogin("ok")
}

func TestHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordLogin("invalid_credentials")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `shopdesk_logins_total{outcome="invalid_credentials"} 1`)
}
