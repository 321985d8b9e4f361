package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsEndpoint(t *testing.T) {
	srv, err := New("identity-gateway", "test", "127.0.0.1:0")
	require.NoError(t, err)

	before := testutil.ToFloat64(DriverErrorsTotal.WithLabelValues("local", "register"))
	DriverErrorsTotal.WithLabelValues("local", "register").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DriverErrorsTotal.WithLabelValues("local", "register")))

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `identity_gateway_build_info{service="identity-gateway",version="test"} 1`)
	assert.Contains(t, body, "identity_gateway_driver_errors_total")
}
