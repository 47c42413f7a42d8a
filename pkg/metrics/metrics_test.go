package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AlsitoQC/internal/models"
)

func TestCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveTransition("EnteringLocation", "ConfirmingSubmission")
	m.ObserveTransition("EnteringLocation", "ConfirmingSubmission")
	m.ObserveLocation(models.LocationTimeout, 5*time.Second)
	m.ObserveLogin("account_not_approved", 20*time.Millisecond)
	m.ObserveVerification("tap")
	m.SetActiveFlows(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("EnteringLocation", "ConfirmingSubmission")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.locationTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginTotal.WithLabelValues("account_not_approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verificationEvents.WithLabelValues("tap")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeFlows))
}

func TestIndependentRegistries(t *testing.T) {
	// two instances must not collide on registration
	a, b := NewMetrics(), NewMetrics()
	a.ObserveVerification("vote")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.verificationEvents.WithLabelValues("vote")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	r := gin.New()
	r.Use(MonitorMiddleware(m))
	r.GET("/api/flows/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/flows/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/flows/:id", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/api/flows/:id",status="204"} 1`)
}
