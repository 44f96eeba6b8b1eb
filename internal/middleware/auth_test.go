package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-middleware-testing")
}

type staticAdmins struct {
	emails map[string]bool
	err    error
	calls  int
}

func (s *staticAdmins) IsAdmin(_ context.Context, email string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.emails[email], nil
}

func mustToken(t *testing.T, id uint, email, role, aal string) string {
	t.Helper()
	token, err := utils.GenerateToken(id, email, role, aal, 1)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestAuthRequired_NoHeader(t *testing.T) {
	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/protected", okHandler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_InvalidFormat(t *testing.T) {
	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/protected", okHandler)

	testCases := []string{
		"InvalidToken",
		"Basic token123",
		"Bearer",
		"Bearer invalid.jwt.token",
	}

	for _, authHeader := range testCases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", authHeader)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected status %d, got %d", authHeader, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestAuthRequired_ValidToken(t *testing.T) {
	token := mustToken(t, 7, "ravi@example.com", "editor", utils.AAL2)

	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/protected", func(c *gin.Context) {
		if GetUserID(c) != 7 || GetEmail(c) != "ravi@example.com" || GetRole(c) != "editor" || GetAAL(c) != utils.AAL2 {
			t.Errorf("unexpected identity: %d %q %q %q", GetUserID(c), GetEmail(c), GetRole(c), GetAAL(c))
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestAuthRequired_AccessCookie(t *testing.T) {
	token := mustToken(t, 3, "a@example.com", "user", utils.AAL1)

	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/protected", okHandler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	router := gin.New()
	router.Use(OptionalAuth())
	router.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})

	for _, header := range []string{"", "Bearer broken"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/open", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != `{"user_id":0}` {
			t.Errorf("header %q: got %d %s", header, w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/open", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, 9, "x@example.com", "user", ""))
	router.ServeHTTP(w, req)
	if w.Body.String() != `{"user_id":9}` {
		t.Errorf("expected user 9, got %s", w.Body.String())
	}
}

func TestAdminRequired(t *testing.T) {
	admins := &staticAdmins{emails: map[string]bool{"admin@example.com": true}}

	tests := []struct {
		name   string
		email  string
		role   string
		status int
	}{
		{"allowlisted", "admin@example.com", "user", http.StatusOK},
		{"admin role without allowlist entry", "other@example.com", "admin", http.StatusForbidden},
		{"plain user", "user@example.com", "user", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthRequired(), AdminRequired(admins))
			router.GET("/admin", func(c *gin.Context) {
				if !IsAdmin(c) {
					t.Error("IsAdmin should be true past AdminRequired")
				}
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+mustToken(t, 1, tt.email, tt.role, utils.AAL1))
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestAdminRequired_LookupFailure(t *testing.T) {
	admins := &staticAdmins{err: errors.New("db down")}

	router := gin.New()
	router.Use(AuthRequired(), AdminRequired(admins))
	router.GET("/admin", okHandler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, 1, "admin@example.com", "user", utils.AAL1))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestEditorRequired(t *testing.T) {
	admins := &staticAdmins{emails: map[string]bool{"admin@example.com": true}}

	tests := []struct {
		email  string
		role   string
		status int
	}{
		{"ed@example.com", "editor", http.StatusOK},
		{"admin@example.com", "user", http.StatusOK},
		{"user@example.com", "user", http.StatusForbidden},
	}

	for _, tt := range tests {
		router := gin.New()
		router.Use(AuthRequired(), EditorRequired(admins))
		router.POST("/posts", okHandler)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/posts", nil)
		req.Header.Set("Authorization", "Bearer "+mustToken(t, 2, tt.email, tt.role, utils.AAL1))
		router.ServeHTTP(w, req)

		if w.Code != tt.status {
			t.Errorf("%s/%s: expected status %d, got %d", tt.email, tt.role, tt.status, w.Code)
		}
	}
}

func TestContextGetters_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if id := GetUserID(c); id != 0 {
		t.Errorf("expected 0 for missing user_id, got %d", id)
	}
	if email := GetEmail(c); email != "" {
		t.Errorf("expected empty email, got %q", email)
	}
	if role := GetRole(c); role != "" {
		t.Errorf("expected empty role, got %q", role)
	}
	if IsAdmin(c) {
		t.Error("expected IsAdmin false")
	}
}

type staticUsers map[uint]*models.User

func (s staticUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, response.NewNotFound("user not found")
}

func TestMFASatisfied(t *testing.T) {
	users := staticUsers{
		1: {ID: 1, Email: "mfa@example.com", MFAEnabled: true},
		2: {ID: 2, Email: "plain@example.com"},
	}

	router := gin.New()
	router.Use(AuthRequired(), MFASatisfied(users))
	router.GET("/admin", okHandler)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"enrolled user with aal1", mustToken(t, 1, "mfa@example.com", "user", utils.AAL1), http.StatusForbidden},
		{"enrolled user with aal2", mustToken(t, 1, "mfa@example.com", "user", utils.AAL2), http.StatusOK},
		{"user without second factor", mustToken(t, 2, "plain@example.com", "user", utils.AAL1), http.StatusOK},
		{"unknown user", mustToken(t, 9, "gone@example.com", "user", utils.AAL1), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}
