package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/logger"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/gorm"
)

type AuthService struct {
	db          *gorm.DB
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
	configSvc   *SystemConfigService
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, ldapService *LDAPService) *AuthService {
	return &AuthService{
		db:          db,
		ldapService: ldapService,
		jwtConfig:   jwtCfg,
		configSvc:   NewSystemConfigService(db),
	}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

// LoginResult is a freshly issued token pair.
type LoginResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
	AAL             string
	User            *models.User

	refreshID uint
}

// ClientInfo is recorded on every refresh token.
type ClientInfo struct {
	IP        string
	UserAgent string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a local account and signs it in. The profile step is
// still pending, so onboarding_completed starts false.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest, client ClientInfo) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, response.NewBadRequest("a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, response.NewBadRequest("password must be at least 8 characters")
	}
	if req.Phone != "" && !utils.ValidPhone(req.Phone) {
		return nil, response.NewBadRequest("invalid phone number")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	incomplete := false
	user := models.User{
		Email:               email,
		Password:            hashed,
		FullName:            strings.TrimSpace(req.FullName),
		Phone:               strings.TrimSpace(req.Phone),
		Role:                models.RoleUser,
		AuthType:            models.AuthTypeLocal,
		IsActive:            true,
		OnboardingCompleted: &incomplete,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewConflict("an account with this email already exists")
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("user_id", user.ID).Str("email", email).Msg("user signed up")
	return s.IssueTokens(ctx, &user, utils.AAL1, client)
}

// Login authenticates with a password (locally or against LDAP) and issues
// an aal1 token pair.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, client ClientInfo) (*LoginResult, error) {
	var user *models.User
	var err error

	if req.AuthType == "" {
		req.AuthType = models.AuthTypeLocal
	}

	switch req.AuthType {
	case models.AuthTypeLocal:
		user, err = s.localAuth(ctx, normalizeEmail(req.Email), req.Password)
	case models.AuthTypeLDAP:
		user, err = s.ldapAuth(ctx, normalizeEmail(req.Email), req.Password)
	default:
		return nil, response.NewBadRequest("invalid auth type")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(user).Update("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to record last login")
	}

	return s.IssueTokens(ctx, user, utils.AAL1, client)
}

// IssueTokens mints an access token at the given assurance level and a new
// refresh token bound to the same level.
func (s *AuthService) IssueTokens(ctx context.Context, user *models.User, aal string, client ClientInfo) (*LoginResult, error) {
	return s.issueTokens(s.db.WithContext(ctx), user, aal, client, s.tokenLifetimes())
}

type tokenLifetimes struct {
	accessHours  int
	refreshHours int
}

func (s *AuthService) tokenLifetimes() tokenLifetimes {
	return tokenLifetimes{
		accessHours:  s.getAccessTokenExpireHours(),
		refreshHours: s.getRefreshTokenExpireHours(),
	}
}

func (s *AuthService) issueTokens(db *gorm.DB, user *models.User, aal string, client ClientInfo, ttl tokenLifetimes) (*LoginResult, error) {
	accessHours, refreshHours := ttl.accessHours, ttl.refreshHours

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, aal, accessHours)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		AAL:         aal,
		ExpiresAt:   now.Add(time.Duration(refreshHours) * time.Hour),
		CreatedByIP: client.IP,
		UserAgent:   truncate(client.UserAgent, 255),
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:     token,
		AccessExpireAt:  now.Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refreshToken,
		RefreshExpireAt: record.ExpiresAt,
		AAL:             aal,
		User:            user,
		refreshID:       record.ID,
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and
// linked to its replacement. The assurance level carries over.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, response.NewUnauthorized("refresh token required")
	}

	ttl := s.tokenLifetimes()
	var result *LoginResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token_hash = ?", hashRefreshToken(refreshToken)).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewUnauthorized("invalid refresh token")
			}
			return err
		}
		if stored.RevokedAt != nil {
			return response.NewUnauthorized("refresh token revoked")
		}
		if time.Now().After(stored.ExpiresAt) {
			return response.NewUnauthorized("refresh token expired")
		}

		var user models.User
		if err := tx.First(&user, stored.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewUnauthorized("user not found")
			}
			return err
		}
		if !user.IsActive {
			return response.NewForbidden("user is disabled")
		}

		issued, err := s.issueTokens(tx, &user, stored.AAL, client, ttl)
		if err != nil {
			return err
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", stored.ID).
			Updates(map[string]interface{}{
				"revoked_at":           time.Now(),
				"replaced_by_token_id": issued.refreshID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewUnauthorized("refresh token revoked")
		}

		result = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashRefreshToken(refreshToken)).
		Update("revoked_at", time.Now()).Error
}

// PurgeExpiredRefreshTokens deletes tokens that expired, or were revoked,
// before cutoff.
func (s *AuthService) PurgeExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at < ?", cutoff, cutoff).
		Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

func (s *AuthService) getAccessTokenExpireHours() int {
	return s.configSvc.GetInt(models.ConfigAccessTokenHours, s.jwtConfig.ExpireHour)
}

func (s *AuthService) getRefreshTokenExpireHours() int {
	fallback := s.jwtConfig.RefreshExpireHour
	if fallback <= 0 {
		fallback = 720
	}
	return s.configSvc.GetInt(models.ConfigRefreshTokenHours, fallback)
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	tokenHash = hashRefreshToken(token)
	return token, tokenHash, nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) localAuth(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ? AND auth_type = ?", email, models.AuthTypeLocal).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, response.NewForbidden("user is disabled")
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, response.NewUnauthorized("invalid email or password")
	}
	return &user, nil
}

func (s *AuthService) ldapAuth(ctx context.Context, email, password string) (*models.User, error) {
	ldapUser, err := s.ldapService.Authenticate(email, password)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	email = normalizeEmail(ldapUser.Email)

	var user models.User
	err = db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:    email,
			FullName: ldapUser.FullName,
			Phone:    ldapUser.Phone,
			Role:     models.RoleUser,
			AuthType: models.AuthTypeLDAP,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	if user.AuthType != models.AuthTypeLDAP {
		return nil, response.NewConflict("this email is registered for password sign-in")
	}
	if !user.IsActive {
		return nil, response.NewForbidden("user is disabled")
	}

	if ldapUser.FullName != "" && ldapUser.FullName != user.FullName {
		user.FullName = ldapUser.FullName
		db.Model(&user).Update("full_name", user.FullName)
	}
	return &user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// CreateAdminIfNotExists seeds the first administrator and puts its email
// on the admin allowlist.
func (s *AuthService) CreateAdminIfNotExists(cfg *config.AdminConfig) error {
	email := normalizeEmail(cfg.Email)
	if email == "" {
		return nil
	}

	var count int64
	s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count == 0 {
		hashedPassword, err := utils.HashPassword(cfg.Password)
		if err != nil {
			return err
		}

		completed := true
		admin := models.User{
			Email:               email,
			Password:            hashedPassword,
			FullName:            "Administrator",
			Role:                models.RoleAdmin,
			AuthType:            models.AuthTypeLocal,
			IsActive:            true,
			OnboardingCompleted: &completed,
		}
		if err := s.db.Create(&admin).Error; err != nil {
			return err
		}
		logger.Info().Str("email", email).Msg("created default administrator")
	}

	return s.db.Where(models.AdminEmail{Email: email}).
		Attrs(models.AdminEmail{Note: "bootstrap administrator"}).
		FirstOrCreate(&models.AdminEmail{}).Error
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldapService != nil && s.ldapService.IsEnabled()
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.AuthType != models.AuthTypeLocal {
		return response.NewBadRequest("LDAP users cannot change password here")
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return response.NewBadRequest("incorrect old password")
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password", hashedPassword).Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
