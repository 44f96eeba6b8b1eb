package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/services"
)

// Metrics exposes the Prometheus registry in text format.
func Metrics(m *services.Metrics) gin.HandlerFunc {
	return gin.WrapH(m.Handler())
}
