package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viprasethu/backend/internal/middleware"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/services"
)

func masterRouter(e *env) (*gin.Engine, *MasterDataHandler) {
	h := NewMasterDataHandler(
		services.NewMasterDataManagers(e.db, services.NoopCache{}),
		services.NewSampradayaCategoryService(e.db),
	)
	r := gin.New()
	public := r.Group("/api/master")
	admin := r.Group("/api/admin", middleware.AuthRequired(), middleware.AdminRequired(e.admins))
	for _, kind := range h.Kinds() {
		public.GET("/"+kind, h.ForKind(kind), h.ListActive)

		g := admin.Group("/"+kind, h.ForKind(kind))
		g.GET("", h.List)
		g.POST("", h.Create)
		g.PUT("/:code", h.Update)
		g.PATCH("/:code", h.Patch)
		g.DELETE("/:code", h.Delete)
	}
	public.GET("/categories/:code/sampradayas", h.CategorySampradayas)
	admin.GET("/sampradaya-categories", h.ListMappings)
	admin.POST("/sampradaya-categories", h.CreateMapping)
	admin.DELETE("/sampradaya-categories/:sampradaya/:category", h.DeleteMapping)
	return r, h
}

func TestMasterDataHandler_Kinds(t *testing.T) {
	_, h := masterRouter(newEnv(t))
	assert.Equal(t, []string{
		services.KindCategories,
		services.KindExperienceLevels,
		services.KindLanguages,
		services.KindSampradayas,
		services.KindServiceRadius,
		services.KindTerms,
	}, h.Kinds())
}

func TestMasterDataHandler_CRUD(t *testing.T) {
	e := newEnv(t)
	r, _ := masterRouter(e)
	auth := adminAuth(t)

	w := do(r, http.MethodPost, "/api/admin/languages", services.MasterInput{
		Code:         "tulu",
		Name:         "Tulu",
		Translations: map[string]interface{}{"kn": "ತುಳು"},
	}, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/api/admin/languages", services.MasterInput{Code: "tulu", Name: "Tulu"}, auth)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/admin/languages", services.MasterInput{Code: "Bad Code", Name: "x"}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	inactive := false
	w = do(r, http.MethodPatch, "/api/admin/languages/tulu", services.MasterPatch{IsActive: &inactive}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var public []models.Language
	decodeData(t, do(r, http.MethodGet, "/api/master/languages", nil, ""), &public)
	for _, l := range public {
		assert.NotEqual(t, "tulu", l.Code)
	}

	var all []models.Language
	decodeData(t, do(r, http.MethodGet, "/api/admin/languages?includeInactive=true", nil, auth), &all)
	assert.Contains(t, masterCodes(all), "tulu")

	w = do(r, http.MethodPut, "/api/admin/languages/tulu", services.MasterInput{Code: "tulu", Name: "Tulu Nadu"}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodDelete, "/api/admin/languages/tulu", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodDelete, "/api/admin/languages/tulu", nil, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// re-creating a deleted code restores it
	w = do(r, http.MethodPost, "/api/admin/languages", services.MasterInput{Code: "tulu", Name: "Tulu"}, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decodeData(t, do(r, http.MethodGet, "/api/master/languages", nil, ""), &public)
	assert.Contains(t, masterCodes(public), "tulu")
}

func TestMasterDataHandler_AdminOnly(t *testing.T) {
	e := newEnv(t)
	r, _ := masterRouter(e)

	w := do(r, http.MethodPost, "/api/admin/categories", services.MasterInput{Code: "x", Name: "X"},
		bearer(t, 9, "user@example.com", models.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/master/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var cats []models.Category
	decodeData(t, w, &cats)
	assert.Equal(t, "purohit", cats[0].Code)
}

func TestMasterDataHandler_UnknownKind(t *testing.T) {
	e := newEnv(t)
	_, h := masterRouter(e)

	r := gin.New()
	r.GET("/api/master/planets", h.ForKind("planets"), h.ListActive)
	w := do(r, http.MethodGet, "/api/master/planets", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decode(t, w).OK)
}

func TestMasterDataHandler_Mappings(t *testing.T) {
	e := newEnv(t)
	r, _ := masterRouter(e)
	auth := adminAuth(t)

	for _, sc := range []string{"madhwa", "smartha"} {
		w := do(r, http.MethodPost, "/api/admin/sampradaya-categories",
			services.SampradayaCategoryInput{SampradayaCode: sc, CategoryCode: "purohit"}, auth)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := do(r, http.MethodPost, "/api/admin/sampradaya-categories",
		services.SampradayaCategoryInput{SampradayaCode: "madhwa", CategoryCode: "purohit"}, auth)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/admin/sampradaya-categories",
		services.SampradayaCategoryInput{SampradayaCode: "madhwa", CategoryCode: "dentist"}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var sampradayas []models.Sampradaya
	decodeData(t, do(r, http.MethodGet, "/api/master/categories/purohit/sampradayas", nil, ""), &sampradayas)
	require.Len(t, sampradayas, 2)
	assert.Equal(t, "madhwa", sampradayas[0].Code)

	var rows []models.SampradayaCategory
	decodeData(t, do(r, http.MethodGet, "/api/admin/sampradaya-categories?sampradaya_code=smartha", nil, auth), &rows)
	require.Len(t, rows, 1)

	w = do(r, http.MethodDelete, "/api/admin/sampradaya-categories/smartha/purohit", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodDelete, "/api/admin/sampradaya-categories/smartha/purohit", nil, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	decodeData(t, do(r, http.MethodGet, "/api/master/categories/purohit/sampradayas", nil, ""), &sampradayas)
	assert.Len(t, sampradayas, 1)
}

func masterCodes(items []models.Language) []string {
	codes := make([]string, 0, len(items))
	for _, l := range items {
		codes = append(codes, l.Code)
	}
	return codes
}
