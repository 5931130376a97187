package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Paths hit on a fixed cadence by scrapers and probes rather than by
// operators. Logged at debug so steady-state traffic does not drown
// out command activity.
var scrapePaths = map[string]bool{
	"/metrics": true,
	"/health":  true,
	"/ready":   true,
}

// AdminRequestLogger logs each admin request with its outcome.
// Operator actions log at info and up; scrape-cadence endpoints drop
// to debug.
func AdminRequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := routeLabel(c)

		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		case scrapePaths[path]:
			event = logger.Debug()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("admin_request")
	}
}

// AdminRequestMetrics records per-request counters and latency under
// the controller's node label.
func AdminRequestMetrics(node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		RecordHTTPRequest(node, c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

// routeLabel returns the matched route pattern. Requests that matched
// no route collapse into one label so probes against arbitrary paths
// cannot inflate metric cardinality.
func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unmatched"
}
