package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/logger"
	"github.com/viprasethu/backend/pkg/response"
)

const (
	ContextUserID  = "user_id"
	ContextEmail   = "email"
	ContextRole    = "role"
	ContextAAL     = "aal"
	ContextIsAdmin = "is_admin"
)

// AdminChecker answers whether an email is on the admin allowlist.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// accessToken returns the bearer token, falling back to the access_token
// cookie set for browser sessions.
func accessToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

func setClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextAAL, claims.AAL)
}

// AuthRequired is a middleware that checks for a valid JWT token
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := accessToken(c)
		if !ok {
			response.Unauthorized(c, "authorization required")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present
// and lets anonymous requests through.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := accessToken(c); ok {
			if claims, err := utils.ParseToken(tokenString); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// AdminRequired admits callers whose email is on the admin allowlist. It
// must run after AuthRequired.
func AdminRequired(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := resolveAdmin(c, admins)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !ok {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserLookup loads the account behind a token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// MFASatisfied rejects aal1 tokens of users who have a second factor
// enrolled. It must run after AuthRequired.
func MFASatisfied(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetAAL(c) == utils.AAL2 {
			c.Next()
			return
		}
		user, err := users.GetUserByID(c.Request.Context(), GetUserID(c))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if user.MFAEnabled {
			response.Forbidden(c, "second factor required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// EditorRequired admits editors and admins.
func EditorRequired(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == models.RoleEditor || role == models.RoleAdmin {
			c.Next()
			return
		}
		ok, err := resolveAdmin(c, admins)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !ok {
			response.Forbidden(c, "editor access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func resolveAdmin(c *gin.Context, admins AdminChecker) (bool, error) {
	if v, exists := c.Get(ContextIsAdmin); exists {
		return v.(bool), nil
	}
	email := GetEmail(c)
	if email == "" {
		return false, nil
	}
	ok, err := admins.IsAdmin(c.Request.Context(), email)
	if err != nil {
		logger.Error().Err(err).Str("email", email).Msg("admin allowlist lookup failed")
		return false, err
	}
	c.Set(ContextIsAdmin, ok)
	return ok, nil
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetEmail gets the current user's email from context
func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextEmail); exists {
		return email.(string)
	}
	return ""
}

// GetRole gets the current user role from context
func GetRole(c *gin.Context) string {
	if role, exists := c.Get(ContextRole); exists {
		return role.(string)
	}
	return ""
}

func GetAAL(c *gin.Context) string {
	if aal, exists := c.Get(ContextAAL); exists {
		return aal.(string)
	}
	return ""
}

// IsAdmin reports whether AdminRequired (or EditorRequired) established the
// caller as an admin on this request.
func IsAdmin(c *gin.Context) bool {
	if v, exists := c.Get(ContextIsAdmin); exists {
		return v.(bool)
	}
	return false
}

// Actor builds the audit identity for the current request.
func Actor(c *gin.Context) services.Actor {
	return services.Actor{
		UserID:    GetUserID(c),
		Email:     GetEmail(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Client describes the caller for refresh-token bookkeeping.
func Client(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
