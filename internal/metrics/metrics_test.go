package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204"))

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204"))
	assert.Equal(t, before+2, after)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "nutriplan_http_requests_total"))
}

func TestBusinessCounters(t *testing.T) {
	before := testutil.ToFloat64(subscriptionTransitions.WithLabelValues("APPROVED"))
	RecordSubscriptionTransition("APPROVED")
	assert.Equal(t, before+1, testutil.ToFloat64(subscriptionTransitions.WithLabelValues("APPROVED")))

	before = testutil.ToFloat64(cronJobRuns.WithLabelValues("x", "error"))
	RecordCronRun("x", assert.AnError)
	assert.Equal(t, before+1, testutil.ToFloat64(cronJobRuns.WithLabelValues("x", "error")))
}
