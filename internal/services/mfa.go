package services

import (
	"context"
	"strings"

	"github.com/pquerna/otp/totp"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/logger"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/gorm"
)

const mfaIssuer = "Vipra Sethu"

// MFAEnrollment is returned once; the secret is not readable afterwards.
type MFAEnrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// MFAService manages TOTP second factors. A verified code steps a session
// up from aal1 to aal2.
type MFAService struct {
	db   *gorm.DB
	auth *AuthService
}

func NewMFAService(db *gorm.DB, auth *AuthService) *MFAService {
	return &MFAService{db: db, auth: auth}
}

// Enroll generates a new TOTP secret. The factor only becomes active after
// the first successful Verify.
func (s *MFAService) Enroll(ctx context.Context, userID uint) (*MFAEnrollment, error) {
	user, err := s.auth.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, response.NewConflict("MFA is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("mfa_secret", key.Secret()).Error; err != nil {
		return nil, err
	}
	return &MFAEnrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// Verify checks a TOTP code, enables the factor on first use and issues an
// aal2 token pair.
func (s *MFAService) Verify(ctx context.Context, userID uint, code string, client ClientInfo) (*LoginResult, error) {
	user, err := s.auth.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFASecret == "" {
		return nil, response.NewBadRequest("MFA is not enrolled")
	}
	if !totp.Validate(strings.TrimSpace(code), user.MFASecret) {
		return nil, response.NewUnauthorized("invalid verification code")
	}

	if !user.MFAEnabled {
		if err := s.db.WithContext(ctx).Model(user).Update("mfa_enabled", true).Error; err != nil {
			return nil, err
		}
		user.MFAEnabled = true
		logger.Info().Uint("user_id", user.ID).Msg("mfa enabled")
	}

	return s.auth.IssueTokens(ctx, user, utils.AAL2, client)
}
