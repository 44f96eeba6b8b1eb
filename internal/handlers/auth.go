package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/middleware"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/pkg/response"
)

type AuthHandler struct {
	authService   *services.AuthService
	mfaService    *services.MFAService
	secureCookies bool
}

func NewAuthHandler(authService *services.AuthService, mfaService *services.MFAService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, mfaService: mfaService, secureCookies: secureCookies}
}

// SessionResponse is the body returned whenever a token pair is issued.
type SessionResponse struct {
	AccessToken      string       `json:"access_token"`
	ExpiresAt        time.Time    `json:"expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	AAL              string       `json:"aal"`
	User             *models.User `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type MFAVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *AuthHandler) issue(c *gin.Context, res *services.LoginResult) {
	middleware.SetSessionCookies(c, res, h.secureCookies)
	response.Success(c, SessionResponse{
		AccessToken:      res.AccessToken,
		ExpiresAt:        res.AccessExpireAt,
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpireAt,
		AAL:              res.AAL,
		User:             res.User,
	})
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.authService.Signup(c.Request.Context(), &req, middleware.Client(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.issue(c, res)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.authService.Login(c.Request.Context(), &req, middleware.Client(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.issue(c, res)
}

// Refresh handles POST /api/auth/refresh. The token comes from the body or
// the refresh_token cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := h.refreshToken(c)
	res, err := h.authService.Refresh(c.Request.Context(), token, middleware.Client(c))
	if err != nil {
		if response.StatusOf(err) < 500 {
			middleware.ClearSessionCookies(c, h.secureCookies)
		}
		response.Error(c, err)
		return
	}
	h.issue(c, res)
}

// Logout handles POST /api/auth/logout: the refresh token is revoked and
// both cookies are cleared.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.RevokeRefreshToken(c.Request.Context(), h.refreshToken(c)); err != nil {
		response.Error(c, err)
		return
	}
	middleware.ClearSessionCookies(c, h.secureCookies)
	response.Success(c, gin.H{"message": "logged out"})
}

func (h *AuthHandler) refreshToken(c *gin.Context) string {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	cookie, _ := c.Cookie(middleware.RefreshTokenCookie)
	return cookie
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"user": user, "aal": middleware.GetAAL(c)})
}

// GetAuthConfig returns authentication configuration
// GET /api/auth/config
func (h *AuthHandler) GetAuthConfig(c *gin.Context) {
	response.Success(c, gin.H{"ldap_enabled": h.authService.IsLDAPEnabled()})
}

// ChangePassword handles PUT /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password updated"})
}

// EnrollMFA handles POST /api/auth/mfa/enroll
func (h *AuthHandler) EnrollMFA(c *gin.Context) {
	enrollment, err := h.mfaService.Enroll(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, enrollment)
}

// VerifyMFA handles POST /api/auth/mfa/verify and steps the session up to aal2.
func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	var req MFAVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "code is required")
		return
	}
	res, err := h.mfaService.Verify(c.Request.Context(), middleware.GetUserID(c), req.Code, middleware.Client(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.issue(c, res)
}
