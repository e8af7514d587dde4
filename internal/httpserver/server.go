package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brooktewabe/Activity-Log-Service/internal/app"
	"github.com/brooktewabe/Activity-Log-Service/internal/handlers"
	"github.com/brooktewabe/Activity-Log-Service/internal/ratelimit"
)

// NewRouter wires public endpoints and the ingestion API.
// Public: /health, /metrics (when enabled)
// Ingestion: /api/v1/logs, /api/v1/logs/batch, rate limited when limiter is set
func NewRouter(state *app.State, limiter ratelimit.Limiter) *gin.Engine {
	// Test mode set by tests is left alone.
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Client IP comes from the socket unless the peer is a trusted proxy.
	// Proxy entries are checked by config.Validate.
	if err := r.SetTrustedProxies(state.Config.HTTP.TrustedProxies); err != nil {
		state.Logger.Printf("ERROR: invalid trusted proxies, using socket addresses: %v", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(gin.Recovery())
	r.Use(state.Metrics.Middleware())

	handlers.RegisterHealthRoutes(r)
	if state.Metrics != nil {
		handlers.RegisterMetricRoutes(r, state.Metrics)
	}

	api := r.Group("/api/v1")
	api.Use(limitBody(state.Config.HTTP.MaxBodyBytes))
	if limiter != nil {
		api.Use(ratelimit.Middleware(limiter, state.Logger))
	}
	handlers.RegisterLogRoutes(api, state.Ingest)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Not Found",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}

// limitBody caps request bodies at n bytes; reads past it fail with
// *http.MaxBytesError.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
