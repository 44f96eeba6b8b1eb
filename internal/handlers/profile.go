package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/middleware"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/pkg/response"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	admins   *services.AdminDirectory
}

func NewProfileHandler(profiles *services.ProfileService, admins *services.AdminDirectory) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, admins: admins}
}

type AdminEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Note  string `json:"note"`
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	user, err := h.profiles.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	isAdmin, err := h.admins.IsAdmin(c.Request.Context(), user.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"user": user, "is_admin": isAdmin})
}

// Update handles PUT /api/profile. Saving completes onboarding.
func (h *ProfileHandler) Update(c *gin.Context) {
	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	user, err := h.profiles.Update(c.Request.Context(), middleware.GetUserID(c), &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// ListAdmins handles GET /api/admin/admin-emails
func (h *ProfileHandler) ListAdmins(c *gin.Context) {
	items, err := h.admins.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

// AddAdmin handles POST /api/admin/admin-emails
func (h *ProfileHandler) AddAdmin(c *gin.Context) {
	var req AdminEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email is required")
		return
	}
	if err := h.admins.Add(c.Request.Context(), req.Email, req.Note); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"email": req.Email})
}

// RemoveAdmin handles DELETE /api/admin/admin-emails/:email
func (h *ProfileHandler) RemoveAdmin(c *gin.Context) {
	if strings.EqualFold(c.Param("email"), middleware.GetEmail(c)) {
		response.BadRequest(c, "cannot remove your own admin access")
		return
	}
	if err := h.admins.Remove(c.Request.Context(), c.Param("email")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"email": c.Param("email")})
}
