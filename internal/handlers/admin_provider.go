package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/middleware"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminProviderHandler struct {
	providers  *services.AdminProviderService
	moderation *services.ModerationService
}

func NewAdminProviderHandler(providers *services.AdminProviderService, moderation *services.ModerationService) *AdminProviderHandler {
	return &AdminProviderHandler{providers: providers, moderation: moderation}
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/admin/providers
func (h *AdminProviderHandler) List(c *gin.Context) {
	var q services.AdminProviderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	result, err := h.providers.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Get handles GET /api/admin/providers/:id
func (h *AdminProviderHandler) Get(c *gin.Context) {
	detail, err := h.providers.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// Approve handles POST /api/admin/providers/:id/approve
func (h *AdminProviderHandler) Approve(c *gin.Context) {
	provider, err := h.moderation.ApproveProvider(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, provider)
}

// Reject handles POST /api/admin/providers/:id/reject. The body is optional.
func (h *AdminProviderHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	provider, err := h.moderation.RejectProvider(c.Request.Context(), c.Param("id"), req.Reason, middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, provider)
}

// Export handles GET /api/admin/providers/export
func (h *AdminProviderHandler) Export(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !models.ProviderStatus(status).Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	data, err := h.providers.ExportXLSX(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}

	name := "providers"
	if status != "" {
		name += "-" + status
	}
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, xlsxContentType, data)
}
