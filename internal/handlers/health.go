package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database, queue and object store.
type HealthHandler struct {
	db            *gorm.DB
	queue         services.TaskQueue
	storageDriver string
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, storageDriver string) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, storageDriver: storageDriver}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := 200

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "error: " + err.Error()
		}
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = 503
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"ok":      status == 200,
		"status":  overall,
		"service": "viprasethu",
		"components": gin.H{
			"database":   dbStatus,
			"queue_mode": queueMode,
			"storage":    h.storageDriver,
		},
	})
}
