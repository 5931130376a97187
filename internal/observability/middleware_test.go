package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func adminRouter(node string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(
		AdminRequestLogger(zerolog.Nop()),
		AdminRequestMetrics(node),
	)
	router.GET("/status", func(c *gin.Context) { c.Status(200) })
	return router
}

func TestAdminMetricsUseRoutePattern(t *testing.T) {
	router := adminRouter("metrics-node")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	if rec.Code != 200 {
		t.Fatalf("status: got %d", rec.Code)
	}

	got := testutil.ToFloat64(httpRequests.WithLabelValues("metrics-node", "GET", "/status", "200"))
	if got != 1 {
		t.Fatalf("requests counter for /status: got %v want 1", got)
	}
}

func TestAdminMetricsCollapseUnmatchedPaths(t *testing.T) {
	router := adminRouter("cardinality-node")

	// Arbitrary unregistered paths must not each become a label value.
	for _, path := range []string{"/nope", "/also/nope", "/still/nope"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != 404 {
			t.Fatalf("%s: got %d", path, rec.Code)
		}
	}

	got := testutil.ToFloat64(httpRequests.WithLabelValues("cardinality-node", "GET", "unmatched", "404"))
	if got != 3 {
		t.Fatalf("unmatched counter: got %v want 3", got)
	}
}
