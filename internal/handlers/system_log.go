package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/pkg/response"
)

type SystemLogHandler struct {
	systemLogService *services.SystemLogService
}

func NewSystemLogHandler(systemLogService *services.SystemLogService) *SystemLogHandler {
	return &SystemLogHandler{systemLogService: systemLogService}
}

// List handles GET /api/admin/system-logs
func (h *SystemLogHandler) List(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.systemLogService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GetModules handles GET /api/admin/system-logs/modules
func (h *SystemLogHandler) GetModules(c *gin.Context) {
	modules, err := h.systemLogService.GetModules()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"modules": modules})
}

type RetentionRequest struct {
	Days int `json:"days" binding:"required,min=1,max=3650"`
}

// GetRetention handles GET /api/admin/system-logs/retention
func (h *SystemLogHandler) GetRetention(c *gin.Context) {
	response.Success(c, gin.H{"days": h.systemLogService.GetRetentionDays()})
}

// SetRetention handles PUT /api/admin/system-logs/retention
func (h *SystemLogHandler) SetRetention(c *gin.Context) {
	var req RetentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "days must be between 1 and 3650")
		return
	}
	if err := h.systemLogService.SetRetentionDays(req.Days); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"days": req.Days})
}
