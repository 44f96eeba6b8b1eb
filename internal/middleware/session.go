package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/logger"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	LoginPath           = "/login"
	HomePath            = "/home"
	MFAVerifyPath       = "/mfa/verify"
	ProfileCompletePath = "/profile/complete"
	AdminPrefix         = "/admin"
)

// DefaultProtectedPrefixes are the page paths that need a signed-in user.
var DefaultProtectedPrefixes = []string{"/home", "/admin", "/profile", "/community/new", "/mfa"}

// SessionBackend refreshes browser sessions and loads the signed-in user.
type SessionBackend interface {
	Refresh(ctx context.Context, refreshToken string, client services.ClientInfo) (*services.LoginResult, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

type SessionGateConfig struct {
	Sessions          SessionBackend
	Admins            AdminChecker
	ProtectedPrefixes []string
	SecureCookies     bool
}

type pageSession struct {
	user *models.User
	aal  string
}

// SetSessionCookies stores a token pair as HttpOnly cookies.
func SetSessionCookies(c *gin.Context, res *services.LoginResult, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, res.AccessToken, maxAge(res.AccessExpireAt), "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, res.RefreshToken, maxAge(res.RefreshExpireAt), "/", "", secure, true)
}

func ClearSessionCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}

func maxAge(expireAt time.Time) int {
	secs := int(time.Until(expireAt).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// SessionGate guards page routes. In order it refreshes an expired session
// from the refresh cookie, sends anonymous visitors of protected pages to
// the login page, keeps non-admins out of /admin, asks admins with an
// enrolled second factor to step up, and holds users whose onboarding is
// explicitly incomplete on the profile page. API routes are not gated here.
func SessionGate(cfg SessionGateConfig) gin.HandlerFunc {
	protected := cfg.ProtectedPrefixes
	if len(protected) == 0 {
		protected = DefaultProtectedPrefixes
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			c.Next()
			return
		}

		sess := loadSession(c, cfg)
		target := c.Request.URL.RequestURI()

		if sess == nil {
			if hasAnyPrefix(path, protected) {
				redirect(c, LoginPath+"?redirectTo="+url.QueryEscape(target))
				return
			}
			c.Next()
			return
		}

		c.Set(ContextUserID, sess.user.ID)
		c.Set(ContextEmail, sess.user.Email)
		c.Set(ContextRole, sess.user.Role)
		c.Set(ContextAAL, sess.aal)

		if hasPrefix(path, AdminPrefix) {
			ok, err := resolveAdmin(c, cfg.Admins)
			if err != nil || !ok {
				redirect(c, HomePath)
				return
			}
			if sess.aal != utils.AAL2 && sess.user.MFAEnabled {
				redirect(c, MFAVerifyPath+"?redirectTo="+url.QueryEscape(target))
				return
			}
		}

		onboarding := sess.user.OnboardingCompleted
		if onboarding != nil && !*onboarding {
			if path != ProfileCompletePath {
				redirect(c, ProfileCompletePath)
				return
			}
		} else if path == "/" {
			redirect(c, HomePath)
			return
		}

		c.Next()
	}
}

// loadSession resolves the visitor from the access cookie, rotating the
// refresh cookie when the access token is missing or expired.
func loadSession(c *gin.Context, cfg SessionGateConfig) *pageSession {
	ctx := c.Request.Context()

	if tokenString, ok := accessToken(c); ok {
		if claims, err := utils.ParseToken(tokenString); err == nil {
			user, err := cfg.Sessions.GetUserByID(ctx, claims.UserID)
			if err == nil && user.IsActive {
				return &pageSession{user: user, aal: claims.AAL}
			}
		}
	}

	refresh, err := c.Cookie(RefreshTokenCookie)
	if err != nil || refresh == "" {
		return nil
	}
	res, err := cfg.Sessions.Refresh(ctx, refresh, Client(c))
	if err != nil {
		logger.Debug().Err(err).Msg("session refresh rejected")
		ClearSessionCookies(c, cfg.SecureCookies)
		return nil
	}
	SetSessionCookies(c, res, cfg.SecureCookies)
	return &pageSession{user: res.User, aal: res.AAL}
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
	c.Abort()
}

// hasPrefix matches whole path segments, so /administer is not /admin.
func hasPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if hasPrefix(path, p) {
			return true
		}
	}
	return false
}
