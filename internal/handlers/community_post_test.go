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

func communityRouter(e *env) *gin.Engine {
	moderation := services.NewModerationService(e.db, e.logs, e.metrics)
	h := NewCommunityPostHandler(services.NewCommunityPostService(e.db, moderation, e.logs, e.metrics))

	r := gin.New()
	r.GET("/api/community/posts", h.ListPublished)
	r.GET("/api/community/posts/:id", h.GetPublished)

	member := r.Group("/api/community", middleware.AuthRequired())
	member.GET("/my/posts", h.ListMine)
	member.POST("/posts", h.Create)
	member.PUT("/posts/:id", h.Update)
	member.DELETE("/posts/:id", h.Delete)
	member.POST("/posts/:id/submit", h.Transition(models.PostActionSubmit))

	admin := r.Group("/api/admin", middleware.AuthRequired(), middleware.AdminRequired(e.admins))
	admin.GET("/posts", h.ListAll)
	admin.GET("/posts/:id", h.Get)
	admin.DELETE("/posts/:id", h.Delete)
	admin.POST("/posts/:id/approve", h.Transition(models.PostActionApprove))
	admin.POST("/posts/:id/publish", h.Transition(models.PostActionPublish))
	admin.POST("/posts/:id/reject", h.Transition(models.PostActionReject))
	return r
}

func createPost(t *testing.T, r http.Handler, auth string, in services.PostInput) models.CommunityPost {
	t.Helper()
	w := do(r, http.MethodPost, "/api/community/posts", in, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post models.CommunityPost
	decodeData(t, w, &post)
	return post
}

func TestCommunityPostHandler_PublishFlow(t *testing.T) {
	e := newEnv(t)
	r := communityRouter(e)
	author := bearer(t, 20, "author@example.com", models.RoleUser)

	post := createPost(t, r, author, services.PostInput{Type: "event", Title: "Ganesha Chaturthi", Body: "At the mutt."})
	assert.Equal(t, models.PostDraft, post.Status)
	assert.Equal(t, uint(20), post.AuthorID)

	// drafts are not public
	w := do(r, http.MethodGet, "/api/community/posts/"+post.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/community/posts/"+post.ID+"/submit", nil, author)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// an author cannot approve their own post
	w = do(r, http.MethodPost, "/api/admin/posts/"+post.ID+"/approve", nil, author)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// publish before approve is an illegal move
	w = do(r, http.MethodPost, "/api/admin/posts/"+post.ID+"/publish", nil, adminAuth(t))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/admin/posts/"+post.ID+"/approve", nil, adminAuth(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(r, http.MethodPost, "/api/admin/posts/"+post.ID+"/publish", nil, adminAuth(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var published models.CommunityPost
	decodeData(t, w, &published)
	assert.Equal(t, models.PostPublished, published.Status)
	assert.NotNil(t, published.PublishedAt)

	w = do(r, http.MethodGet, "/api/community/posts", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list services.PostListResult
	decodeData(t, w, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, post.ID, list.Items[0].ID)

	w = do(r, http.MethodGet, "/api/community/posts/"+post.ID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// published posts are frozen and cannot be removed by the author
	w = do(r, http.MethodPut, "/api/community/posts/"+post.ID, services.PostInput{Title: "Edited"}, author)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(r, http.MethodDelete, "/api/community/posts/"+post.ID, nil, author)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodDelete, "/api/admin/posts/"+post.ID, nil, adminAuth(t))
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/api/community/posts/"+post.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommunityPostHandler_RejectAndResubmit(t *testing.T) {
	e := newEnv(t)
	r := communityRouter(e)
	author := bearer(t, 21, "writer@example.com", models.RoleUser)

	post := createPost(t, r, author, services.PostInput{Type: "obituary", Title: "In memory", Submit: true})
	assert.Equal(t, models.PostPending, post.Status)

	w := do(r, http.MethodPost, "/api/admin/posts/"+post.ID+"/reject", TransitionRequest{Reason: "Add the date"}, adminAuth(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rejected models.CommunityPost
	decodeData(t, w, &rejected)
	assert.Equal(t, models.PostRejected, rejected.Status)
	assert.Equal(t, "Add the date", rejected.RejectionReason)

	w = do(r, http.MethodPut, "/api/community/posts/"+post.ID,
		services.PostInput{Type: "obituary", Title: "In memory", Body: "Passed on 3 March.", Submit: true}, author)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resubmitted models.CommunityPost
	decodeData(t, w, &resubmitted)
	assert.Equal(t, models.PostPending, resubmitted.Status)
	assert.Empty(t, resubmitted.RejectionReason)
}

func TestCommunityPostHandler_OwnershipAndListing(t *testing.T) {
	e := newEnv(t)
	r := communityRouter(e)
	alice := bearer(t, 30, "alice@example.com", models.RoleUser)
	bob := bearer(t, 31, "bob@example.com", models.RoleUser)

	mine := createPost(t, r, alice, services.PostInput{Type: "news", Title: "Alice news"})
	createPost(t, r, bob, services.PostInput{Type: "news", Title: "Bob news"})

	w := do(r, http.MethodPut, "/api/community/posts/"+mine.ID, services.PostInput{Title: "Hijack"}, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(r, http.MethodPost, "/api/community/posts/"+mine.ID+"/submit", nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/community/my/posts", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	var list services.PostListResult
	decodeData(t, w, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Alice news", list.Items[0].Title)

	w = do(r, http.MethodGet, "/api/admin/posts?status=draft", nil, adminAuth(t))
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &list)
	assert.Equal(t, int64(2), list.Total)

	w = do(r, http.MethodGet, "/api/community/my/posts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCommunityPostHandler_InvalidInput(t *testing.T) {
	e := newEnv(t)
	r := communityRouter(e)
	author := bearer(t, 40, "a@example.com", models.RoleUser)

	w := do(r, http.MethodPost, "/api/community/posts", services.PostInput{Type: "gossip", Title: "x"}, author)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/community/posts", services.PostInput{Type: "news"}, author)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/admin/posts/unknown", nil, adminAuth(t))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
