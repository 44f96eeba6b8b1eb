package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/middleware"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/pkg/response"
)

type CommunityPostHandler struct {
	posts *services.CommunityPostService
}

func NewCommunityPostHandler(posts *services.CommunityPostService) *CommunityPostHandler {
	return &CommunityPostHandler{posts: posts}
}

type TransitionRequest struct {
	Reason string `json:"reason"`
}

// ListPublished handles GET /api/community/posts
func (h *CommunityPostHandler) ListPublished(c *gin.Context) {
	var q services.PostListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	q.Status = string(models.PostPublished)
	h.list(c, q)
}

// GetPublished handles GET /api/community/posts/:id
func (h *CommunityPostHandler) GetPublished(c *gin.Context) {
	post, err := h.posts.GetPublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// ListMine handles GET /api/community/my/posts
func (h *CommunityPostHandler) ListMine(c *gin.Context) {
	var q services.PostListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	q.AuthorID = middleware.GetUserID(c)
	h.list(c, q)
}

// ListAll handles GET /api/admin/posts
func (h *CommunityPostHandler) ListAll(c *gin.Context) {
	var q services.PostListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	h.list(c, q)
}

func (h *CommunityPostHandler) list(c *gin.Context, q services.PostListQuery) {
	result, err := h.posts.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Get handles GET /api/admin/posts/:id and returns a post in any status.
func (h *CommunityPostHandler) Get(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// Create handles POST /api/community/posts
func (h *CommunityPostHandler) Create(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	post, err := h.posts.Create(c.Request.Context(), &in, middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// Update handles PUT /api/community/posts/:id
func (h *CommunityPostHandler) Update(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	post, err := h.posts.Update(c.Request.Context(), c.Param("id"), &in, middleware.Actor(c), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// Delete handles DELETE /api/community/posts/:id and /api/admin/posts/:id
func (h *CommunityPostHandler) Delete(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), c.Param("id"), middleware.Actor(c), middleware.IsAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

// Transition returns the handler for one moderation action, e.g.
// POST /api/admin/posts/:id/approve. Reject accepts an optional reason.
func (h *CommunityPostHandler) Transition(action models.PostAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransitionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				response.BadRequest(c, "invalid request body")
				return
			}
		}
		post, err := h.posts.Transition(c.Request.Context(), c.Param("id"), action, req.Reason,
			middleware.Actor(c), middleware.IsAdmin(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, post)
	}
}
