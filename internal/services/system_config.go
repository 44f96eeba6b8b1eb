package services

import (
	"errors"
	"strconv"

	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/response"
	"gorm.io/gorm"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where("config_key = ?", key).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetInt returns a positive integer setting, or defaultValue when the key is
// missing, malformed or not positive.
func (s *SystemConfigService) GetInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(s.GetWithDefault(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where("config_key = ?", key).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

// Update changes an existing setting from the admin screen. Unknown keys are
// not created and int settings must stay positive.
func (s *SystemConfigService) Update(key, value string) (*models.SystemConfig, error) {
	var cfg models.SystemConfig
	if err := s.db.Where("config_key = ?", key).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Not found")
		}
		return nil, err
	}
	if cfg.Type == "int" {
		if n, err := strconv.Atoi(value); err != nil || n <= 0 {
			return nil, response.NewBadRequest(cfg.Key + " must be a positive integer")
		}
	}
	if err := s.db.Model(&cfg).Update("value", value).Error; err != nil {
		return nil, err
	}
	cfg.Value = value
	return &cfg, nil
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where("config_group = ?", group).Order("config_key").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *SystemConfigService) List() ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Order("config_group, config_key").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}
