package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers GET /health. It does not check the broker.
func RegisterHealthRoutes(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
}
