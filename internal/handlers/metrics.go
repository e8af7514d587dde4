package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/brooktewabe/Activity-Log-Service/internal/metrics"
)

// RegisterMetricRoutes exposes the Prometheus registry on GET /metrics.
func RegisterMetricRoutes(r gin.IRoutes, m *metrics.Metrics) {
	r.GET("/metrics", gin.WrapH(m.Handler()))
}
