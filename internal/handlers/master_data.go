package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/pkg/response"
)

const masterKindKey = "master_kind"

// MasterDataHandler serves every reference table through one set of
// handlers. Each table's route group is tagged with ForKind.
type MasterDataHandler struct {
	managers map[string]services.MasterDataManager
	mappings *services.SampradayaCategoryService
}

func NewMasterDataHandler(managers map[string]services.MasterDataManager, mappings *services.SampradayaCategoryService) *MasterDataHandler {
	return &MasterDataHandler{managers: managers, mappings: mappings}
}

// Kinds lists the registered reference tables.
func (h *MasterDataHandler) Kinds() []string {
	kinds := make([]string, 0, len(h.managers))
	for k := range h.managers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ForKind tags a route group with the reference table it serves.
func (h *MasterDataHandler) ForKind(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(masterKindKey, kind)
		c.Next()
	}
}

func (h *MasterDataHandler) manager(c *gin.Context) (services.MasterDataManager, bool) {
	m, ok := h.managers[c.GetString(masterKindKey)]
	if !ok {
		response.NotFound(c, "Not found")
	}
	return m, ok
}

// List handles GET /api/admin/{kind}
func (h *MasterDataHandler) List(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	var q services.MasterListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	items, err := m.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

// ListActive handles GET /api/master/{kind}
func (h *MasterDataHandler) ListActive(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	items, err := m.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

// Create handles POST /api/admin/{kind}
func (h *MasterDataHandler) Create(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	var in services.MasterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	item, err := m.Create(c.Request.Context(), &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update handles PUT /api/admin/{kind}/:code
func (h *MasterDataHandler) Update(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	var in services.MasterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	item, err := m.Update(c.Request.Context(), c.Param("code"), &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, item)
}

// Patch handles PATCH /api/admin/{kind}/:code
func (h *MasterDataHandler) Patch(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	var p services.MasterPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	item, err := m.Patch(c.Request.Context(), c.Param("code"), &p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, item)
}

// Delete handles DELETE /api/admin/{kind}/:code
func (h *MasterDataHandler) Delete(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	if err := m.Delete(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"code": c.Param("code")})
}

// ListMappings handles GET /api/admin/sampradaya-categories
func (h *MasterDataHandler) ListMappings(c *gin.Context) {
	var filter services.SampradayaCategoryInput
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	items, err := h.mappings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

// CreateMapping handles POST /api/admin/sampradaya-categories
func (h *MasterDataHandler) CreateMapping(c *gin.Context) {
	var in services.SampradayaCategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	row, err := h.mappings.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// DeleteMapping handles DELETE /api/admin/sampradaya-categories/:sampradaya/:category
func (h *MasterDataHandler) DeleteMapping(c *gin.Context) {
	if err := h.mappings.Delete(c.Request.Context(), c.Param("sampradaya"), c.Param("category")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// CategorySampradayas handles GET /api/master/categories/:code/sampradayas
func (h *MasterDataHandler) CategorySampradayas(c *gin.Context) {
	items, err := h.mappings.SampradayasForCategory(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}
