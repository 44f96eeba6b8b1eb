package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/pkg/response"
)

// ProviderHandler serves the public directory.
type ProviderHandler struct {
	search  *services.ProviderSearchService
	details *services.ProviderDetailService
}

func NewProviderHandler(search *services.ProviderSearchService, details *services.ProviderDetailService) *ProviderHandler {
	return &ProviderHandler{search: search, details: details}
}

// Search lists approved providers.
// GET /api/providers
func (h *ProviderHandler) Search(c *gin.Context) {
	var q services.ProviderSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	result, err := h.search.Search(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, result.Items, result.Total, result.Limit, result.Offset)
}

// Get returns one approved provider.
// GET /api/providers/:id
func (h *ProviderHandler) Get(c *gin.Context) {
	detail, err := h.details.Get(c.Request.Context(), c.Param("id"), requestLocale(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// requestLocale prefers ?locale= and falls back to the first
// Accept-Language tag.
func requestLocale(c *gin.Context) string {
	if l := strings.TrimSpace(c.Query("locale")); l != "" {
		return strings.ToLower(l)
	}
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return ""
	}
	tag := strings.SplitN(header, ",", 2)[0]
	tag = strings.SplitN(tag, ";", 2)[0]
	tag = strings.SplitN(strings.TrimSpace(tag), "-", 2)[0]
	return strings.ToLower(tag)
}
