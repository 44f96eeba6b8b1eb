package services

import (
	"context"
	"errors"
	"strings"

	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/gorm"
)

// ProfileInput is the editable part of a user's profile.
type ProfileInput struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// Update saves the profile and marks onboarding as completed.
func (s *ProfileService) Update(ctx context.Context, userID uint, in *ProfileInput) (*models.User, error) {
	name := strings.TrimSpace(in.FullName)
	phone := strings.TrimSpace(in.Phone)
	if name == "" {
		return nil, response.NewBadRequest("full name is required")
	}
	if phone != "" && !utils.ValidPhone(phone) {
		return nil, response.NewBadRequest("invalid phone number")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	completed := true
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"full_name":            name,
		"phone":                phone,
		"onboarding_completed": true,
	}).Error; err != nil {
		return nil, err
	}
	user.FullName, user.Phone, user.OnboardingCompleted = name, phone, &completed
	return user, nil
}

// AdminDirectory answers whether an email is on the admin allowlist.
type AdminDirectory struct {
	db *gorm.DB
}

func NewAdminDirectory(db *gorm.DB) *AdminDirectory {
	return &AdminDirectory{db: db}
}

func (d *AdminDirectory) IsAdmin(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, nil
	}
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.AdminEmail{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *AdminDirectory) Add(ctx context.Context, email, note string) error {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return response.NewBadRequest("a valid email is required")
	}
	return d.db.WithContext(ctx).Where(models.AdminEmail{Email: email}).
		Attrs(models.AdminEmail{Note: note}).
		FirstOrCreate(&models.AdminEmail{}).Error
}

func (d *AdminDirectory) Remove(ctx context.Context, email string) error {
	res := d.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Delete(&models.AdminEmail{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return response.NewNotFound("Not found")
	}
	return nil
}

func (d *AdminDirectory) List(ctx context.Context) ([]models.AdminEmail, error) {
	items := make([]models.AdminEmail, 0)
	err := d.db.WithContext(ctx).Order("email").Find(&items).Error
	return items, err
}
