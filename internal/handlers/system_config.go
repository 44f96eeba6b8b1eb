package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/pkg/response"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(configService *services.SystemConfigService) *SystemConfigHandler {
	return &SystemConfigHandler{configService: configService}
}

type UpdateConfigRequest struct {
	Value string `json:"value"`
}

// List handles GET /api/admin/system-config?group=
func (h *SystemConfigHandler) List(c *gin.Context) {
	var (
		items interface{}
		err   error
	)
	if group := c.Query("group"); group != "" {
		items, err = h.configService.GetByGroup(group)
	} else {
		items, err = h.configService.List()
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

// Update handles PUT /api/admin/system-config/:key
func (h *SystemConfigHandler) Update(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	cfg, err := h.configService.Update(c.Param("key"), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cfg)
}
